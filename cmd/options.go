package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/simonvc/fundcard/internal/fund"
)

var (
	optsCountry     string
	optsSubdivision string
	optsAsset       string
	optsCurrency    string
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List payment methods available for an asset in a country",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
		defer cancel()

		c := newOnrampClient(stderrLogger())
		opts, err := c.FetchOnrampOptions(ctx, fund.OptionsParams{
			Country:     strings.ToUpper(optsCountry),
			Subdivision: strings.ToUpper(optsSubdivision),
			Asset:       strings.ToUpper(optsAsset),
			Currency:    strings.ToUpper(optsCurrency),
		})
		if err != nil {
			return err
		}

		if len(opts.PaymentMethods) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No payment methods found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMIN\tMAX")
		fmt.Fprintln(w, "----\t----\t---\t---")
		for _, pm := range opts.PaymentMethods {
			maxAmt := "-"
			if !pm.MaxAmount.IsZero() {
				maxAmt = pm.MaxAmount.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pm.ID, pm.Name, pm.MinAmount.String(), maxAmt)
		}
		return w.Flush()
	},
}

func init() {
	optionsCmd.Flags().StringVar(&optsCountry, "country", "US", "ISO 3166-1 country of the buyer")
	optionsCmd.Flags().StringVar(&optsSubdivision, "subdivision", "", "ISO 3166-2 subdivision, e.g. NY")
	optionsCmd.Flags().StringVar(&optsAsset, "asset", "", "Asset to buy, e.g. BTC")
	optionsCmd.Flags().StringVar(&optsCurrency, "currency", "USD", "Fiat currency for limits")
	rootCmd.AddCommand(optionsCmd)
}
