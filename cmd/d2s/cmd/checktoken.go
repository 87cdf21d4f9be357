package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jpopelka/dist-git-to-source-git/pkg/config"
	"github.com/jpopelka/dist-git-to-source-git/pkg/readiness"
)

var (
	tokenCommand []string
	tokenValue   string
)

// checkTokenCmd compares the live auth token against the configured one.
// Advisory: a mismatch is logged but the command still exits zero.
var checkTokenCmd = &cobra.Command{
	Use:   "check-token",
	Short: "Compare the live auth token with the configured one (advisory)",
	Long: `Obtains the live bearer token (by running --token-command, e.g.
"oc whoami -t") and compares it byte-for-byte with D2S_DEPLOYER_TOKEN.
A mismatch is logged but never fails the command; deploys proceed either way.`,
	RunE: runCheckToken,
}

func init() {
	checkTokenCmd.Flags().StringSliceVar(&tokenCommand, "token-command", []string{"oc", "whoami", "-t"}, "command producing the live token")
	checkTokenCmd.Flags().StringVar(&tokenValue, "token", "", "live token value (skips running --token-command)")
	rootCmd.AddCommand(checkTokenCmd)
}

func runCheckToken(cmd *cobra.Command, args []string) error {
	log := newLogger()

	env, err := config.ValidateEnv()
	if err != nil {
		return err
	}

	var source readiness.TokenSource
	if tokenValue != "" {
		source = readiness.StaticTokenSource(tokenValue)
	} else {
		source = &readiness.CommandTokenSource{
			Path: tokenCommand[0],
			Args: tokenCommand[1:],
		}
	}

	if err := readiness.VerifyToken(cmd.Context(), source, env.DeployerToken); err != nil {
		// Advisory by contract: log, never abort the deploy.
		log.Warn("token check failed", "err", err.Error())
		return nil
	}

	log.Info("token check passed")
	return nil
}
