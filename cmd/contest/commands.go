package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/config"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// application is the part of app.App the commands drive.
type application interface {
	RunCycle(ctx context.Context, n int, keywords string) (models.CycleReport, error)
	GenerateOne(ctx context.Context, keywords string) (models.EntryOutcome, error)
	ResolveWinner(ctx context.Context) (models.WinnerDecision, []models.EngagementResult, error)
	Reconcile(ctx context.Context) error
	Close() error
}

var errEntriesFailed = errors.New("some entries failed")

var runCmd = &cobra.Command{
	Use:                "run [config flags] [keywords...]",
	Short:              "Run one contest cycle",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, args, func(ctx context.Context, a application, cfg *config.Config, rest []string) error {
			report, err := a.RunCycle(ctx, cfg.EntriesPerCycle, keywordsFrom(cfg, rest))
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			if report.Submitted() == 0 {
				return errEntriesFailed
			}
			return nil
		})
	},
}

var generateCmd = &cobra.Command{
	Use:                "generate [config flags] <keywords...>",
	Short:              "Generate and submit a single entry",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, args, func(ctx context.Context, a application, cfg *config.Config, rest []string) error {
			keywords := keywordsFrom(cfg, rest)
			if keywords == "" {
				return errors.New("keywords are required")
			}
			out, err := a.GenerateOne(ctx, keywords)
			printOutcome(cmd.OutOrStdout(), out)
			return err
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:                "resolve [config flags]",
	Short:              "Tally engagement and declare the winner",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, args, func(ctx context.Context, a application, _ *config.Config, _ []string) error {
			decision, snapshot, err := a.ResolveWinner(ctx)
			printSnapshot(cmd.OutOrStdout(), snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Winner: %s (score %d, policy %s, tx %s)\n", decision.CID, decision.Score, decision.Policy, decision.TxHash)
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:                "reconcile [config flags]",
	Short:              "Drive pending ledger writes to finality",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, args, func(ctx context.Context, a application, _ *config.Config, _ []string) error {
			return a.Reconcile(ctx)
		})
	},
}
