package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var from string
	var jsonOut bool
	var strict bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Paste a routine into the builder",
		Long: `Replay portable routine JSON into the routine builder. --from takes
clipboard (default), -, file:<path> or shelf:<name>. Exercises missing from
the builder's library and fields that would not stick are reported, not fatal;
use --strict to exit non-zero when any were.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			src, err := endpoint(cmd, from, rt.shelf)
			if err != nil {
				return err
			}
			data, err := src.Read(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := rt.engine.Import(cmd.Context(), string(data))
			if err != nil {
				return err
			}

			if jsonOut {
				if err := writeJSON(cmd, rep); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderReport(rep))
			}

			_, notFound, partial := rep.Counts()
			if strict && notFound+partial > 0 {
				return fmt.Errorf("import finished with %d not found and %d partial", notFound, partial)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "clipboard", "Where to read the routine from")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any exercise was not fully applied")
	return cmd
}
