package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonvc/fundcard/internal/store"
)

var (
	histAsset  string
	histLimit  int
	histOffset int
	histJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded checkout attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		attempts, err := st.ListAttempts(context.Background(), store.AttemptFilter{
			Asset:  histAsset,
			Limit:  histLimit,
			Offset: histOffset,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if histJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if attempts == nil {
				attempts = []store.Attempt{}
			}
			return enc.Encode(attempts)
		}

		if len(attempts) == 0 {
			fmt.Fprintln(out, "No checkout attempts found.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tASSET\tAMOUNT\tMETHOD\tOUTCOME\tDURATION")
		fmt.Fprintln(w, "-------\t-----\t------\t------\t-------\t--------")
		for _, a := range attempts {
			amount := a.FiatAmount + " " + a.Currency
			if a.InputType == "crypto" {
				amount = a.CryptoAmount + " " + a.Asset
			}
			method := a.PaymentMethod
			if method == "" {
				method = "-"
			}
			outcome := string(a.Outcome)
			if a.Error != "" {
				outcome += ": " + a.Error
			}
			duration := "-"
			if a.FinishedAt != nil {
				duration = a.FinishedAt.Sub(a.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				a.StartedAt.Local().Format("2006-01-02 15:04:05"), a.Asset, amount, method, outcome, duration)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&histAsset, "asset", "", "Only show attempts for this asset")
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "Maximum attempts to show (0 for all)")
	historyCmd.Flags().IntVar(&histOffset, "offset", 0, "Skip this many attempts")
	historyCmd.Flags().BoolVar(&histJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(historyCmd)
}
