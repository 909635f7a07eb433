package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simonvc/fundcard/internal/fund"
)

// quoteOnlyToken stands in for the session token; a quote never opens a
// checkout.
const quoteOnlyToken = "quote-only"

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Fetch payment options and a live quote once",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(quoteOnlyToken)
		if err != nil {
			return err
		}
		loader := fund.Loader{Fetcher: newOnrampClient(stderrLogger()), Timeout: cfg.FetchTimeout}

		// Options and quote are independent requests; issue both at once.
		optsReq := s.RequestOptions()
		quoteReq, ok := s.RequestQuote()
		if !ok {
			return fmt.Errorf("--amount must be greater than zero")
		}
		if flagPaymentMethod != "" {
			quoteReq.Params.PaymentMethod = strings.ToUpper(flagPaymentMethod)
		}

		var optsRes fund.OptionsResult
		var quoteRes fund.QuoteResult
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			optsRes = loader.LoadOptions(ctx, optsReq)
			return nil
		})
		g.Go(func() error {
			quoteRes = loader.LoadQuote(ctx, quoteReq)
			return quoteRes.Err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		s.ApplyQuoteResult(quoteRes.Request, quoteRes.Quote, quoteRes.Err)
		s.ApplyOptionsResult(optsRes.Request, optsRes.Options, optsRes.Err)
		if optsRes.Err == nil {
			if err := selectPaymentMethod(s); err != nil {
				return err
			}
		}
		printQuote(cmd, s.Snapshot(), optsRes.Err)
		return nil
	},
}

func printQuote(cmd *cobra.Command, snap fund.Snapshot, optsErr error) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	q := snap.Quote
	fmt.Fprintf(w, "Buy\t%s %s\n", snap.FundAmountCrypto, snap.Asset.Symbol)
	fmt.Fprintf(w, "Pay\t%s %s\n", snap.FundAmountFiat, snap.Currency)
	if q != nil {
		fmt.Fprintf(w, "Total\t%s %s\n", q.PaymentTotal.StringFixed(2), snap.Currency)
		fmt.Fprintf(w, "Coinbase fee\t%s %s\n", q.CoinbaseFee.StringFixed(2), snap.Currency)
		fmt.Fprintf(w, "Network fee\t%s %s\n", q.NetworkFee.StringFixed(2), snap.Currency)
		if q.QuoteID != "" {
			fmt.Fprintf(w, "Quote\t%s\n", q.QuoteID)
		}
	}
	switch {
	case optsErr != nil:
		fmt.Fprintf(w, "Payment methods\tunavailable: %v\n", optsErr)
	case len(snap.PaymentMethods) > 0:
		for i, pm := range snap.PaymentMethods {
			label := ""
			if i == 0 {
				label = "Payment methods"
			}
			mark := ""
			if snap.SelectedPaymentMethod != nil && snap.SelectedPaymentMethod.ID == pm.ID {
				mark = " *"
			}
			fmt.Fprintf(w, "%s\t%s (%s)%s\n", label, pm.Name, pm.ID, mark)
		}
	}
}

func init() {
	addSessionFlags(quoteCmd)
	quoteCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(quoteCmd)
}
