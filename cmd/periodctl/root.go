package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periodclose/internal/app"
	"github.com/odyssey-erp/periodclose/internal/shared"
)

// version is overridden at build time with -ldflags.
var version = "dev"

type globalOptions struct {
	actor   string
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:     "periodctl",
		Short:   "Manage accounting period closing",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.actor, "as", os.Getenv("PERIODCTL_USER"), "user id recorded as the actor")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	rootCmd.AddCommand(
		newPeriodsCommand(opts),
		newValidateCommand(opts),
		newCloseCommand(opts),
		newReopenCommand(opts),
		newPermanentCloseCommand(opts),
		newPreviewCommand(opts),
		newSummaryCommand(opts),
		newAuditCommand(opts),
		newConfigCommand(opts),
		newRolesCommand(opts),
		newJobsCommand(opts),
		newMigrateCommand(opts),
	)
	return rootCmd
}

// withRuntime loads configuration, connects backends and runs fn with an
// actor-scoped context.
func withRuntime(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, rt *app.Runtime) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	rt, err := app.NewRuntime(cmd.Context(), cfg, "periodctl", logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := shared.ContextWithActor(cmd.Context(), shared.Actor{ID: opts.actor, UserAgent: "periodctl/" + version})
	return fn(ctx, rt)
}

func loadConfig(opts *globalOptions) (*app.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", opts.envFile, err)
		}
	}
	return app.LoadConfig()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
