package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
)

func newSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Generate an AI summary of a ready book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				summary, err := tracker.Summarize(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func newConceptsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "concepts <id>",
		Short: "Extract key concepts from a ready book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd.Context(), func(cfg config.Config, tracker *library.Tracker) error {
				concepts, err := tracker.Concepts(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, c := range concepts {
					fmt.Fprintf(cmd.OutOrStdout(), "• %s: %s\n", c.Concept, c.Explanation)
				}
				return nil
			})
		},
	}
}
