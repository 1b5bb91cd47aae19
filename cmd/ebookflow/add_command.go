package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/models"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <file.pdf>",
		Short: "Add a PDF to the library and start its upload pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("cannot read %s: %w", args[0], err)
			}
			fileName := name
			if fileName == "" {
				fileName = filepath.Base(source)
			}

			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				book, err := tracker.Add(cmd.Context(), source, fileName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (id %s), uploading…\n", book.FileName, book.ID)

				// Command invocations are short-lived, so wait for the
				// pipeline instead of leaving it mid-flight on exit.
				tracker.Wait()
				final, err := tracker.Get(book.ID)
				if err != nil {
					return err
				}
				if final.Status == models.StatusFailed {
					return fmt.Errorf("upload pipeline failed: %s", final.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Upload complete, OCR in progress. Run 'ebookflow refresh %s' to check.\n", book.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "override the stored file name")
	return cmd
}
