package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/config"
	"github.com/JakeFAU/sourcescope/internal/logging"
)

var cfgFile string

// envKeyType is the key for storing the env in the command context.
type envKeyType string

const envKey envKeyType = "env"

// env carries what every subcommand needs.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// loadEnv builds the config and logger. It's a variable so tests can swap it.
var loadEnv = func(path string) (*env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sourcescope",
		Short: "Classifies web sources as open (OSINT) or closed (CSINT).",
		Long: `sourcescope probes a URL for reachability, domain registration privacy,
crawl policy, and login/paywall markers, then scores how openly accessible
the source is. It also hosts a small LLM chat and profile-article backend.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cfgFile)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(e.logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, e))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey).(*env); ok && e != nil {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars prefixed SOURCESCOPE_ override it")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAnalyzeCmd())

	return cmd
}

func envFrom(cmd *cobra.Command) (*env, error) {
	e, ok := cmd.Context().Value(envKey).(*env)
	if !ok || e == nil {
		return nil, fmt.Errorf("command environment not initialized")
	}
	return e, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "sourcescope: %v\n", err)
		os.Exit(1)
	}
}
