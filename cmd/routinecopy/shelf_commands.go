package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/claude/routinecopy/internal/models"
)

func newShelfCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelf",
		Short: "Manage routines saved on this machine",
	}
	cmd.AddCommand(newShelfListCommand(ctx))
	cmd.AddCommand(newShelfShowCommand(ctx))
	cmd.AddCommand(newShelfSaveCommand(ctx))
	cmd.AddCommand(newShelfDeleteCommand(ctx))
	return cmd
}

func newShelfListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := ctx.openShelf(cmd)
			if err != nil {
				return err
			}
			defer sh.Close()

			entries, err := sh.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Shelf is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Name, e.Title, fmt.Sprint(e.Exercises), humanize.Time(e.SavedAt)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Title", "Exercises", "Saved"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newShelfShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved routine as portable JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := ctx.openShelf(cmd)
			if err != nil {
				return err
			}
			defer sh.Close()

			r, _, err := sh.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := models.EncodeRoutine(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(text))
			return nil
		},
	}
}

func newShelfSaveCommand(ctx *commandContext) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a routine on the shelf",
		Long:  "Save portable routine JSON under name, replacing any routine already saved there.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := ctx.openShelf(cmd)
			if err != nil {
				return err
			}
			defer sh.Close()

			src, err := endpoint(cmd, from, sh)
			if err != nil {
				return err
			}
			data, err := src.Read(cmd.Context())
			if err != nil {
				return err
			}
			r, err := models.DecodeRoutine(data)
			if err != nil {
				return err
			}
			entry, err := sh.Save(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as %s (%d exercises)\n", entry.Title, entry.Name, entry.Exercises)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "clipboard", "Where to read the routine from")
	return cmd
}

func newShelfDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a saved routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := ctx.openShelf(cmd)
			if err != nil {
				return err
			}
			defer sh.Close()

			if err := sh.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
