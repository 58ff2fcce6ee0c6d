package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

// reconcilectl is a thin operator client for the reconciliation
// endpoints. It talks to a running API instance; it never touches the
// database directly.
func main() {
	rootCmd := &cobra.Command{
		Use:     "reconcilectl",
		Short:   "Operator client for the deposit reconciliation engine",
		Version: Version,
	}

	rootCmd.PersistentFlags().String("addr", envOr("RECONCILE_ADDR", "http://localhost:3000"), "Base URL of the API server")
	rootCmd.PersistentFlags().String("secret", os.Getenv("SWEEP_SECRET"), "Shared secret for operator endpoints")

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
