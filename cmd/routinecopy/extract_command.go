package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claude/routinecopy/internal/models"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var to string
	var saveAs string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Copy the routine shown in the builder",
		Long: `Read the routine currently shown in the routine builder and write it as
portable JSON. --to takes clipboard (default), -, file:<path> or shelf:<name>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			dst, err := endpoint(cmd, to, rt.shelf)
			if err != nil {
				return err
			}
			r, err := rt.engine.ExtractRoutine(cmd.Context())
			if err != nil {
				return err
			}
			text, err := models.EncodeRoutine(r)
			if err != nil {
				return err
			}
			if err := dst.Write(cmd.Context(), text); err != nil {
				return err
			}
			if saveAs != "" {
				if _, err := rt.shelf.Save(cmd.Context(), saveAs, r); err != nil {
					return err
				}
			}

			if dst.String() != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %q (%d exercises) to %s\n", r.Title, len(r.Exercises), dst)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "clipboard", "Where to write the routine")
	cmd.Flags().StringVar(&saveAs, "save", "", "Also save the routine on the shelf under this name")
	return cmd
}
