package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/fundcard/internal/fund"
)

// Session flags shared by buy, url and quote.
var (
	flagAsset         string
	flagCountry       string
	flagSubdivision   string
	flagCurrency      string
	flagToken         string
	flagAmount        string
	flagCrypto        bool
	flagPaymentMethod string
	flagPresets       []string
)

func addSessionFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagAsset, "asset", "", "Asset to buy, e.g. BTC (required)")
	c.Flags().StringVar(&flagCountry, "country", "US", "ISO 3166-1 country of the buyer")
	c.Flags().StringVar(&flagSubdivision, "subdivision", "", "ISO 3166-2 subdivision, e.g. NY")
	c.Flags().StringVar(&flagCurrency, "currency", "USD", "Fiat currency")
	c.Flags().StringVar(&flagToken, "token", "", "Onramp session token (env FUNDCARD_SESSION_TOKEN)")
	c.Flags().StringVar(&flagAmount, "amount", "", "Initial amount")
	c.Flags().BoolVar(&flagCrypto, "crypto", false, "Amount is in units of the asset instead of fiat")
	c.Flags().StringVar(&flagPaymentMethod, "payment-method", "", "Payment method id, e.g. CARD")
	c.MarkFlagRequired("asset")
}

func inputType() fund.InputType {
	if flagCrypto {
		return fund.InputCrypto
	}
	return fund.InputFiat
}

// newSession builds a funding session from the session flags. fallbackToken
// is used when neither --token nor FUNDCARD_SESSION_TOKEN is set.
func newSession(fallbackToken string) (*fund.Session, error) {
	token := flagToken
	if token == "" {
		token = cfg.SessionToken
	}
	if token == "" {
		token = fallbackToken
	}
	props := fund.Props{
		AssetSymbol:  flagAsset,
		Country:      flagCountry,
		Subdivision:  flagSubdivision,
		Currency:     flagCurrency,
		SessionToken: token,
	}
	if len(flagPresets) > 0 {
		if len(flagPresets) != 3 {
			return nil, fmt.Errorf("--presets takes exactly 3 amounts, got %d", len(flagPresets))
		}
		var presets fund.PresetAmountInputs
		for i, p := range flagPresets {
			v := fund.NormalizeAmount(p)
			if !fund.IsPositive(v) {
				return nil, fmt.Errorf("invalid preset amount %q", p)
			}
			presets[i] = v
		}
		props.PresetAmountInputs = &presets
	}

	s, err := fund.NewSession(props)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(flagAmount) != "" {
		s.SetAmount(flagAmount, inputType())
	} else if flagCrypto {
		if err := s.SetInputType(fund.InputCrypto); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// selectPaymentMethod applies --payment-method once options are known.
func selectPaymentMethod(s *fund.Session) error {
	if flagPaymentMethod == "" {
		return nil
	}
	if err := s.SetSelectedPaymentMethod(strings.ToUpper(flagPaymentMethod)); err != nil {
		return fmt.Errorf("%w: %s", err, flagPaymentMethod)
	}
	return nil
}
