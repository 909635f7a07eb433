package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/fundcard/internal/fund"
)

var flagRedact bool

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the hosted checkout URL for an amount",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession("")
		if err != nil {
			return err
		}
		if flagPaymentMethod != "" {
			id := strings.ToUpper(flagPaymentMethod)
			s.ApplyOptionsResult(s.RequestOptions(), &fund.Options{
				PaymentMethods: []fund.PaymentMethod{{ID: id}},
			}, nil)
			if err := selectPaymentMethod(s); err != nil {
				return err
			}
		}

		u := fund.BuildFundingURL(cfg.CheckoutURL, s.Snapshot())
		if flagRedact {
			u = fund.RedactURL(u)
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	},
}

func init() {
	addSessionFlags(urlCmd)
	urlCmd.Flags().BoolVar(&flagRedact, "redact", false, "Hide the session token")
	rootCmd.AddCommand(urlCmd)
}
