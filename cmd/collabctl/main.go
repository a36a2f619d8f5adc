// Command collabctl is the operator-facing CLI: run the server, apply
// store migrations, or exercise the OT transform algebra locally
// against two JSON-encoded edits. Built with github.com/spf13/cobra,
// grounded on zfogg-sidechain's cli/internal/cmd/root.go
// (rootCmd/AddCommand tree, PersistentPreRun for shared setup).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/collabtext/core/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "collabctl",
	Short: "collabtext operator CLI",
	Long: `collabctl runs the collabtext server, applies store migrations,
and exercises the operational-transform engine directly for local
debugging of the transform algebra.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
