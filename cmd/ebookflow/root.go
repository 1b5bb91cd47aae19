package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hywei/ebookflow/internal/config"
	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/remote"
)

// commandContext carries the flags shared by every subcommand.
type commandContext struct {
	configPath string
	mock       bool
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "ebookflow",
		Short:         "Track PDF books through upload, OCR, and AI analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&ctx.configPath, "config", config.DefaultPath(), "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&ctx.mock, "mock", false, "run against an in-memory fake backend")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newRefreshCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newSummaryCommand(ctx))
	rootCmd.AddCommand(newConceptsCommand(ctx))

	return rootCmd
}

// withTracker loads config, opens the local store, builds the facade, and
// hands a ready tracker to fn. The store is closed after fn returns.
func (c *commandContext) withTracker(ctx context.Context, fn func(cfg config.Config, tracker *library.Tracker) error) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	var svc remote.Service
	if c.mock {
		svc = remote.NewFake()
	} else {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration incomplete (see %s, or use --mock): %w", c.configPath, err)
		}
		svc, err = remote.NewClient(ctx, remote.ClientOptions{
			BaseURL: cfg.FunctionsBaseURL,
			Bucket:  cfg.Bucket,
			UserID:  cfg.UserID,
			APIKey:  cfg.APIKey,
		})
		if err != nil {
			return err
		}
	}

	store, err := library.OpenStore(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	tracker, err := library.NewTracker(store, svc, cfg.UserID)
	if err != nil {
		return err
	}
	defer tracker.Wait()

	return fn(cfg, tracker)
}
