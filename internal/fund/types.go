package fund

import (
	"github.com/shopspring/decimal"
)

// InputType selects which amount field the user is editing.
type InputType string

const (
	InputFiat   InputType = "fiat"
	InputCrypto InputType = "crypto"
)

func (t InputType) Valid() bool {
	return t == InputFiat || t == InputCrypto
}

// Toggle returns the other denomination.
func (t InputType) Toggle() InputType {
	if t == InputCrypto {
		return InputFiat
	}
	return InputCrypto
}

// SubmitState is the state of the call-to-action button.
type SubmitState string

const (
	StateDefault SubmitState = "default"
	StateLoading SubmitState = "loading"
	StateSuccess SubmitState = "success"
	StateError   SubmitState = "error"
)

type Asset struct {
	Symbol string `json:"symbol"`
}

// PresetAmountInputs are quick-select fiat amounts.
type PresetAmountInputs [3]string

// PaymentMethod is one way of paying in the hosted checkout. MinAmount and
// MaxAmount are fiat limits; a zero MaxAmount means unbounded.
type PaymentMethod struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	MinAmount   decimal.Decimal `json:"min_amount"`
	MaxAmount   decimal.Decimal `json:"max_amount"`
}

// Allows reports whether the fiat amount fits inside the method's limits.
// Amounts that do not parse are treated as zero.
func (pm PaymentMethod) Allows(fiat string) bool {
	amt := ParseAmount(fiat)
	if amt.IsZero() {
		return true
	}
	if amt.LessThan(pm.MinAmount) {
		return false
	}
	if !pm.MaxAmount.IsZero() && amt.GreaterThan(pm.MaxAmount) {
		return false
	}
	return true
}

// Options lists the payment methods available for a country and asset, in
// display order.
type Options struct {
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

// Find returns the payment method with the given id.
func (o *Options) Find(id string) (PaymentMethod, bool) {
	if o == nil {
		return PaymentMethod{}, false
	}
	for _, pm := range o.PaymentMethods {
		if pm.ID == id {
			return pm, true
		}
	}
	return PaymentMethod{}, false
}

// Quote is a backend price for buying Asset with Currency. ExchangeRate is
// crypto units per one unit of fiat.
type Quote struct {
	QuoteID      string          `json:"quote_id"`
	Asset        string          `json:"asset"`
	Currency     string          `json:"currency"`
	FiatAmount   decimal.Decimal `json:"fiat_amount"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	PaymentTotal decimal.Decimal `json:"payment_total"`
	CoinbaseFee  decimal.Decimal `json:"coinbase_fee"`
	NetworkFee   decimal.Decimal `json:"network_fee"`
}
