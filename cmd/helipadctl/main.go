package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

type globalOptions struct {
	baseURL string
	token   string
	secret  string
	subject string
	role    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "helipadctl",
		Short:         "Operate the helipad reservations API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("HELIPAD_URL", "http://localhost:8080"), "reservations service base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("HELIPAD_TOKEN"), "bearer token sent with every request")
	flags.StringVar(&opts.secret, "jwt-secret", os.Getenv("JWT_SECRET"), "sign a token locally instead of passing --token")
	flags.StringVar(&opts.subject, "as", "", "principal id used when signing a token")
	flags.StringVar(&opts.role, "role", "", "principal role used when signing a token")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newRequestCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newTransitionCmd(opts, "approve", "Approve a pending reservation"))
	root.AddCommand(newTransitionCmd(opts, "reject", "Reject a pending reservation"))
	root.AddCommand(newTransitionCmd(opts, "cancel", "Cancel a pending or confirmed reservation"))
	root.AddCommand(newAvailabilityCmd(opts))

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "helipadctl %s (%s)\n", Version, CommitSHA)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
