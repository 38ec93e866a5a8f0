package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"tailscale.com/tsnet"

	"github.com/claude/routinecopy/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var tailscale bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for remote extract and import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			cfg := rt.cfg
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			if cmd.Flags().Changed("tailscale") {
				cfg.Tailscale.Enabled = tailscale
			}
			srv := server.New(rt.engine, rt.shelf, cfg.Auth.APIKey, rt.log)

			// tsnet or plain TCP
			var listener net.Listener
			if cfg.Tailscale.Enabled {
				if cfg.Tailscale.Hostname == "" {
					return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
				}
				ts := &tsnet.Server{
					Hostname: cfg.Tailscale.Hostname,
					Dir:      cfg.Tailscale.StateDir,
				}
				if err := ts.Start(); err != nil {
					return fmt.Errorf("tsnet start: %w", err)
				}
				defer ts.Close()

				listener, err = ts.Listen("tcp", ":80")
				if err != nil {
					return fmt.Errorf("tsnet listen: %w", err)
				}
				rt.log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
			} else {
				addr := cfg.Server.Addr()
				listener, err = net.Listen("tcp", addr)
				if err != nil {
					return fmt.Errorf("listen on %s: %w", addr, err)
				}
				rt.log.Info("server starting", "addr", listener.Addr().String())
			}

			httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.Serve(listener) }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			rt.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				rt.log.Error("shutdown error", "error", err)
			}
			rt.log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&tailscale, "tailscale", false, "Listen on the tailnet instead of server.host:port")
	return cmd
}
