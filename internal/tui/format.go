package tui

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/simonvc/fundcard/internal/fund"
)

var printer = message.NewPrinter(language.English)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
	"CHF": "CHF ",
	"SGD": "S$",
}

func currencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return strings.ToUpper(code) + " "
}

// formatFiat renders an amount with the currency symbol and grouping, for
// example $12,345 or $10.50.
func formatFiat(currency, amount string) string {
	d := fund.ParseAmount(amount)
	if d.Equal(d.Truncate(0)) {
		return currencySymbol(currency) + printer.Sprintf("%d", d.IntPart())
	}
	f, _ := d.Round(2).Float64()
	return currencySymbol(currency) + printer.Sprintf("%.2f", f)
}

// formatCrypto renders an amount of the asset, trimmed to significant places.
func formatCrypto(symbol, amount string) string {
	d := fund.ParseAmount(amount)
	return d.Round(8).String() + " " + symbol
}
