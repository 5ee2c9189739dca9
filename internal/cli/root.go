package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quizctl/internal/config"
	"quizctl/internal/logger"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	server     string
	token      string
}

// Execute runs the CLI.
func Execute() error {
	config.LoadDotEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "quizctl",
		Short:        "Take timed quizzes against an attempt gateway, or run one",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "gateway base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token (overrides config)")

	cmd.AddCommand(newTakeCmd(opts))
	cmd.AddCommand(newQuizzesCmd(opts))
	cmd.AddCommand(newResultsCmd(opts))
	cmd.AddCommand(newGatewayCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

// load reads config and applies the persistent flag overrides.
func (o *rootOptions) load() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if o.server != "" {
		cfg.Gateway.URL = o.server
	}
	if o.token != "" {
		cfg.Auth.Token = o.token
	}
	return cfg, logger.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr), nil
}
