package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/models"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "refresh [id]",
		Short: "Check whether OCR results are available",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("specify exactly one of an id or --all")
			}

			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				if all {
					if err := tracker.RefreshAll(cmd.Context(), cfg.RefreshConcurrency); err != nil {
						return err
					}
					for _, b := range tracker.Books() {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.ID, b.Status)
					}
					return nil
				}

				ready, err := tracker.Refresh(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ready {
					fmt.Fprintln(cmd.OutOrStdout(), "Still processing. Try again in a moment.")
					return nil
				}
				book, err := tracker.Get(args[0])
				if err != nil {
					return err
				}
				if book.Status == models.StatusReady {
					fmt.Fprintf(cmd.OutOrStdout(), "Ready: %d chars of text extracted.\n", len(book.ProcessedText))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "refresh every processing book")
	return cmd
}
