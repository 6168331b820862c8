package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// options are the flags shared by every command.
type options struct {
	baseURL        string
	token          string
	timeout        time.Duration
	idempotencyKey string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "numrent",
		Short:         "numrent operator CLI",
		Long:          `A command line interface for renting numbers, managing wallets and operating the numrent API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("NUMRENT_URL", "http://localhost:8080"), "Base URL of the numrent API")
	flags.StringVar(&opts.token, "token", os.Getenv("NUMRENT_TOKEN"), "Bearer token used for API calls")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	flags.StringVar(&opts.idempotencyKey, "idempotency-key", "", "Idempotency key for mutating calls (generated when empty)")

	rootCmd.AddCommand(
		pricesCmd(opts),
		rentalsCmd(opts),
		walletCmd(opts),
		adminCmd(opts),
		pricingCmd(opts),
		reconcileCmd(opts),
		migrateCmd(),
		tokenCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
