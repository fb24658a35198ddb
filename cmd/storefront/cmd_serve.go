package main

import (
	"github.com/corray333/backend-labs/storefront/internal/app"
	"github.com/spf13/cobra"
)

// storefront serve: start the HTTP API and the outbox worker.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.MustNewApp(cmd.Context()).Run()

		return nil
	},
}
