package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	rcmcp "github.com/claude/routinecopy/internal/mcp"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long: `Serve extract, import and the shelf as MCP tools over stdio. With --remote
the tools call a routinecopy server (see serve) instead of attaching to a
browser on this machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger(cmd)

			var backend rcmcp.Backend
			if remote != "" {
				log.Info("mcp using remote server", "url", remote)
				backend = rcmcp.NewHTTPClient(remote, cfg.Auth.APIKey)
			} else {
				rt, err := ctx.open(cmd)
				if err != nil {
					return err
				}
				defer rt.Close()
				backend = &rcmcp.Local{Engine: rt.engine, Shelf: rt.shelf}
			}

			return server.ServeStdio(rcmcp.New(backend, Version, log))
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Base URL of a routinecopy server")
	return cmd
}
