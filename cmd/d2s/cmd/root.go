package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpopelka/dist-git-to-source-git/pkg/config"
)

type contextKey string

const configContextKey contextKey = "d2sconfig"

var (
	cfgFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "d2s",
		Short: "Scheduler and deploy checks for the dist-git to source-git sync",
		Long: `d2s runs the recurring check-updates job for the dist-git to
source-git sync service and provides the checks the deployment playbooks
run after a rollout: pod readiness and token consistency.

The schedule subcommand is the long-running daemon; check-ready and
check-token are one-shot commands for deploy pipelines.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadScheduleConfig(cfgFile)
			if err != nil {
				return err
			}

			if err := cfg.Viper().BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the ScheduleConfig from the command context
func GetConfig(cmd *cobra.Command) (*config.ScheduleConfig, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*config.ScheduleConfig)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "schedule config file (default d2s.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
