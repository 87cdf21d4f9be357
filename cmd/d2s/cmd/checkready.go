package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jpopelka/dist-git-to-source-git/pkg/config"
	"github.com/jpopelka/dist-git-to-source-git/pkg/k8s"
	"github.com/jpopelka/dist-git-to-source-git/pkg/readiness"
)

var (
	readySelector string
	readyPhase    string
	readyWait     bool
	readyAttempts int
	readyInterval time.Duration
)

// checkReadyCmd verifies the worker pod reached the expected phase
var checkReadyCmd = &cobra.Command{
	Use:   "check-ready",
	Short: "Check that the deployed worker pod is in the expected phase",
	Long: `Queries pods matching the label selector and asserts the first
match is in the expected phase. Single-shot by default; --wait retries
with a fixed interval until the attempt budget is exhausted.

Exits non-zero when no pod matches or the phase differs.`,
	RunE: runCheckReady,
}

func init() {
	checkReadyCmd.Flags().StringVarP(&readySelector, "selector", "l", "", "label selector (default from config)")
	checkReadyCmd.Flags().StringVar(&readyPhase, "phase", "", "expected pod phase (default from config)")
	checkReadyCmd.Flags().BoolVar(&readyWait, "wait", false, "retry until ready or attempts exhausted")
	checkReadyCmd.Flags().IntVar(&readyAttempts, "attempts", 0, "retry attempts with --wait (default from config)")
	checkReadyCmd.Flags().DurationVar(&readyInterval, "interval", 0, "retry interval with --wait (default from config)")
	rootCmd.AddCommand(checkReadyCmd)
}

func runCheckReady(cmd *cobra.Command, args []string) error {
	log := newLogger()

	env, err := config.ValidateEnv()
	if err != nil {
		return err
	}
	cfg, err := GetConfig(cmd)
	if err != nil {
		return err
	}

	selector := readySelector
	if selector == "" {
		selector = cfg.Readiness.Selector
	}
	phase := readyPhase
	if phase == "" {
		phase = cfg.Readiness.ExpectedPhase
	}

	client, err := k8s.NewClient()
	if err != nil {
		return err
	}
	source := &readiness.PodStatusSource{Client: client}

	ctx := cmd.Context()
	if readyWait {
		attempts := readyAttempts
		if attempts == 0 {
			attempts = cfg.Readiness.Attempts
		}
		interval := readyInterval
		if interval == 0 {
			interval = time.Duration(cfg.Readiness.IntervalSecs) * time.Second
		}
		err = readiness.WaitReady(ctx, source, env.Namespace, selector, phase, attempts, interval, log)
	} else {
		err = readiness.CheckReady(ctx, source, env.Namespace, selector, phase)
	}
	if err != nil {
		return err
	}

	log.Info("workload ready", "namespace", env.Namespace, "selector", selector, "phase", phase)
	return nil
}
