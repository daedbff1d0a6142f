package main

import (
	"os/signal"
	"syscall"

	"github.com/matheuscscp/fairshare/internal/app"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				conf.Server.Addr = addr
			}

			a, err := app.New(ctx, conf)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Server.Run(ctx, conf.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (overrides ADDR)")
	return cmd
}
