package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				if err := tracker.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
				return nil
			})
		},
	}
}
