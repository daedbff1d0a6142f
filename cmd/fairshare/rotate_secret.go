package main

import (
	"github.com/matheuscscp/fairshare/internal/rotatesecret"

	"github.com/spf13/cobra"
)

func rotateSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-secret SECRET_ID",
		Short: "Add a new random version to a Secret Manager secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rotatesecret.Run(cmd.Context(), args[0])
		},
	}
}
