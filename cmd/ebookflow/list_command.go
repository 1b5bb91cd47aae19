package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked books and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				books := tracker.Books()
				if len(books) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is empty. Add a book with 'ebookflow add <file.pdf>'.")
					return nil
				}

				rows := make([][]string, 0, len(books))
				for _, b := range books {
					detail := ""
					switch b.Status {
					case models.StatusFailed:
						detail = b.Error
					case models.StatusReady:
						detail = fmt.Sprintf("%d chars", len(b.ProcessedText))
					case models.StatusProcessing:
						detail = b.GCSUploadPath
					}
					rows = append(rows, []string{b.ID, b.FileName, string(b.Status), detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "File", "Status", "Detail"},
					rows,
				))
				return nil
			})
		},
	}
}
