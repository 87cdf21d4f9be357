package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpopelka/dist-git-to-source-git/pkg/config"
	"github.com/jpopelka/dist-git-to-source-git/pkg/runstore"
)

var runsLimit int

// runsCmd lists recorded runs for a schedule
var runsCmd = &cobra.Command{
	Use:   "runs <schedule>",
	Short: "List recorded check-updates runs for a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of records")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	env, err := config.ValidateEnv()
	if err != nil {
		return err
	}

	store, err := runstore.NewRedisStore(runstore.RedisConfig{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis at %s: %w", env.RedisAddr, err)
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), args[0], runsLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tRUN ID\tEXIT")
	for _, rec := range records {
		exit := "-"
		if rec.ExitCode != nil {
			exit = fmt.Sprintf("%d", *rec.ExitCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.StartedAt.Format(time.RFC3339), rec.Status, rec.RunID, exit)
	}
	return w.Flush()
}
