// contest runs the meme contest pipeline.
//
// Usage:
//
//	contest run [-n N] [-w keywords] [-c config.json]
//	contest generate <keywords>
//	contest resolve [-p max|min_legacy]
//	contest reconcile [-a :50052]
//
// Every command accepts the configuration flags documented in
// internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/app"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/config"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "contest",
	Short: "Generate, distribute and judge contest memes",
	Long: "contest generates memes with a language model, posts them to Discord and X,\n" +
		"archives their metadata and records every entry on an EVM ledger.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.Version = version
}

// newApp is a seam for tests.
var newApp = func(ctx context.Context, cfg *config.Config, logger logging.Logger) (application, error) {
	return app.NewApp(ctx, cfg, logger)
}

// withApp loads the configuration from args, builds the application and
// runs fn under a signal-aware context. rest holds the positional args.
func withApp(cmd *cobra.Command, args []string, fn func(ctx context.Context, a application, cfg *config.Config, rest []string) error) error {
	cfg, rest := config.LoadConfig(args)
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := app.WithSignals(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	return fn(ctx, a, cfg, rest)
}

func keywordsFrom(cfg *config.Config, rest []string) string {
	if len(rest) > 0 {
		return strings.Join(rest, " ")
	}
	return cfg.Keywords
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
