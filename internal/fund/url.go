package fund

import (
	"net/url"
	"strings"
)

const DefaultCheckoutURL = "https://pay.coinbase.com/buy"

// BuildFundingURL derives the hosted checkout URL from a snapshot. The result
// depends only on its inputs: parameters are encoded in key order.
//
// Exactly one preset amount is sent, chosen by the snapshot's input type, and
// only when that amount is positive.
func BuildFundingURL(base string, snap Snapshot) string {
	if base == "" {
		base = DefaultCheckoutURL
	}
	params := url.Values{}
	params.Set("sessionToken", snap.SessionToken)

	amount := NormalizeAmount(snap.AuthoritativeAmount())
	if IsPositive(amount) {
		if snap.InputType == InputCrypto {
			params.Set("presetCryptoAmount", amount)
		} else {
			params.Set("presetFiatAmount", amount)
		}
	}
	if snap.Asset.Symbol != "" {
		params.Set("asset", snap.Asset.Symbol)
	}
	if snap.Currency != "" {
		params.Set("currency", snap.Currency)
	}
	if snap.SelectedPaymentMethod != nil && snap.SelectedPaymentMethod.ID != "" {
		params.Set("paymentMethod", snap.SelectedPaymentMethod.ID)
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

// RedactURL hides the session token of a checkout URL so it can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("sessionToken") {
		q.Set("sessionToken", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
