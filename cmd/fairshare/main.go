package main

import (
	"fmt"
	"os"

	"github.com/matheuscscp/fairshare/config"
	"github.com/matheuscscp/fairshare/logging"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "fairshare",
		Short: "Split a restaurant receipt with friends",
		Long: `fairshare reads the items of a receipt photo, lets the host fix them and
share a link with friends, who claim what they had and pay the host their part
through Beem.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				return nil
			}
			return logging.SetLevel(logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(), extractCmd(), rotateSecretCmd())
	return cmd
}

// loadConfig loads the configuration and lets the --log-level flag win over
// the configured level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		conf.LogLevel = lvl
	}
	return conf, nil
}
