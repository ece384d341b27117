package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"agent_gateway/internal/models"
	"agent_gateway/internal/pricing"
)

func newPricingCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Print the pricing catalog (USD per million tokens)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := pricing.Default()
			if file != "" {
				c, err := pricing.LoadFile(file)
				if err != nil {
					return err
				}
				catalog = c
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PROVIDER\tMODEL\tNAME\tUSD/1M")
				for _, e := range catalog.Entries() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%g\n", e.Provider, e.Model, e.DisplayName, e.PricePerMillionUSD)
				}
				return tw.Flush()
			case "yaml":
				data, err := yaml.Marshal(struct {
					Models []models.PricingEntry `yaml:"models"`
				}{catalog.Entries()})
				if err != nil {
					return fmt.Errorf("failed to encode catalog: %w", err)
				}
				_, err = out.Write(data)
				return err
			default:
				return fmt.Errorf("unknown format %q (table or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "catalog file to validate and print instead of the built-in one")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table or yaml")
	return cmd
}
