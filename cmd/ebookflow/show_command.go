package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/models"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book, including its extracted text when ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				book, err := tracker.Get(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:      %s\n", book.ID)
				fmt.Fprintf(out, "File:    %s\n", book.FileName)
				fmt.Fprintf(out, "Status:  %s\n", book.Status)
				if book.GCSUploadPath != "" {
					fmt.Fprintf(out, "Remote:  %s\n", book.GCSUploadPath)
				}
				switch book.Status {
				case models.StatusFailed:
					fmt.Fprintf(out, "Error:   %s\n", book.Error)
				case models.StatusReady:
					if full {
						fmt.Fprintf(out, "\n%s\n", book.ProcessedText)
					} else {
						fmt.Fprintf(out, "Text:    %d chars (use --full to print)\n", len(book.ProcessedText))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print the whole extracted text")
	return cmd
}
