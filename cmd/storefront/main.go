package main

import (
	"fmt"
	"os"

	"github.com/corray333/backend-labs/storefront/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront order service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.MustInit()
	},
	RunE: serveCmd.RunE,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
