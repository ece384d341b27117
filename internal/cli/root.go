package cli

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Agent gateway: agent configuration, replies and usage metering",
		Long: "gateway serves the dashboard and integration API, resolves which agent answers each page, " +
			"and meters token usage into the cost ledger. Configuration is read from the environment.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := newServeCmd()
	cmd.RunE = serve.RunE

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newPricingCmd())
	cmd.AddCommand(newKeygenCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
