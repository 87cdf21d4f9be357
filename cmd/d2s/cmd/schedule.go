package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpopelka/dist-git-to-source-git/pkg/config"
	"github.com/jpopelka/dist-git-to-source-git/pkg/d2slog"
	"github.com/jpopelka/dist-git-to-source-git/pkg/k8s"
	"github.com/jpopelka/dist-git-to-source-git/pkg/runner"
	"github.com/jpopelka/dist-git-to-source-git/pkg/runstore"
	"github.com/jpopelka/dist-git-to-source-git/pkg/schedule"
	"github.com/jpopelka/dist-git-to-source-git/pkg/statusapi"
)

var localBackend bool

// scheduleCmd runs the scheduler daemon
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the check-updates scheduler",
	Long: `Registers the schedules from the config file, fires them on their
cron calendar with the configured concurrency policy, and serves the
run-record API.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&localBackend, "local", false, "execute runs as local processes instead of Kubernetes Jobs")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	log := newLogger()

	env, err := config.ValidateEnv()
	if err != nil {
		return err
	}
	env.Print(func(format string, a ...interface{}) {
		fmt.Fprintf(os.Stderr, format, a...)
	})

	cfg, err := GetConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Schedules) == 0 {
		return fmt.Errorf("no schedules defined in %s", cfg.ConfigFileUsed())
	}

	var store runstore.Store
	if env.IsDev() && localBackend {
		store = runstore.NewMemoryStore()
	} else {
		store, err = runstore.NewRedisStore(runstore.RedisConfig{
			Addr:     env.RedisAddr,
			Password: env.RedisPassword,
			DB:       env.RedisDB,
			TTL:      30 * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", env.RedisAddr, err)
		}
	}
	defer store.Close()

	var backend runner.Runner
	if localBackend {
		backend = runner.NewLocalRunner()
	} else {
		client, err := k8s.NewClient()
		if err != nil {
			return fmt.Errorf("creating k8s client: %w", err)
		}
		backend = runner.NewK8sRunner(client, env.Namespace, env.WorkerImage)
	}

	sched := schedule.NewScheduler(backend, store, log)
	for _, spec := range cfg.Schedules {
		if err := sched.Register(spec); err != nil {
			return err
		}
	}
	sched.Start()

	api := statusapi.NewApi()
	statusapi.Register(api.Api, store)

	addr := fmt.Sprintf(":%s", env.APIPort)
	server := &http.Server{Addr: addr, Handler: api.Router}
	go func() {
		log.Info("status API listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("status API failed", "err", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}

func newLogger() *d2slog.Logger {
	if verbose {
		return d2slog.NewVerbose()
	}
	return d2slog.NewLogger(slog.LevelInfo, os.Stderr)
}
