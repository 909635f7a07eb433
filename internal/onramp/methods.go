package onramp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/simonvc/fundcard/internal/fund"
)

type methodInfo struct {
	id          string
	name        string
	description string
}

// catalog is the display order of known payment methods.
var catalog = []methodInfo{
	{id: "FIAT_WALLET", name: "Coinbase", description: "Buy with your Coinbase account"},
	{id: "CRYPTO_ACCOUNT", name: "Coinbase", description: "Buy with your Coinbase account"},
	{id: "APPLE_PAY", name: "Apple Pay"},
	{id: "CARD", name: "Debit Card"},
	{id: "ACH_BANK_ACCOUNT", name: "Bank transfer"},
}

// buildPaymentMethods turns the limits of the matching fiat currency into
// payment methods: known methods first in catalog order, then any others in
// the order the backend listed them.
func buildPaymentMethods(currencies []paymentCurrency, currency string) []fund.PaymentMethod {
	var limits []paymentLimit
	for _, pc := range currencies {
		if strings.EqualFold(pc.ID, currency) {
			limits = pc.Limits
			break
		}
	}
	if len(limits) == 0 {
		return nil
	}

	byID := make(map[string]paymentLimit, len(limits))
	for _, l := range limits {
		byID[l.ID] = l
	}

	var methods []fund.PaymentMethod
	seen := map[string]bool{}
	for _, info := range catalog {
		l, ok := byID[info.id]
		if !ok {
			continue
		}
		methods = append(methods, newMethod(info, l, currency))
		seen[info.id] = true
	}
	for _, l := range limits {
		if seen[l.ID] {
			continue
		}
		methods = append(methods, newMethod(methodInfo{id: l.ID, name: humanize(l.ID)}, l, currency))
	}
	return methods
}

func newMethod(info methodInfo, l paymentLimit, currency string) fund.PaymentMethod {
	pm := fund.PaymentMethod{
		ID:          info.id,
		Name:        info.name,
		Description: info.description,
		MinAmount:   parseLimit(l.Min),
		MaxAmount:   parseLimit(l.Max),
	}
	if pm.Description == "" && !pm.MaxAmount.IsZero() {
		pm.Description = fmt.Sprintf("Up to %s %s", pm.MaxAmount.String(), strings.ToUpper(currency))
	}
	return pm
}

func parseLimit(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// humanize turns ACH_BANK_ACCOUNT into "Ach bank account".
func humanize(id string) string {
	s := strings.ToLower(strings.ReplaceAll(id, "_", " "))
	if s == "" {
		return id
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
