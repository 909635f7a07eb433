package fund

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFundingURLFiat(t *testing.T) {
	snap := Snapshot{
		SessionToken:          "sessionToken",
		SelectedPaymentMethod: &PaymentMethod{ID: "FIAT_WALLET"},
		InputType:             InputFiat,
		FundAmountFiat:        "100",
		FundAmountCrypto:      "0",
		Asset:                 Asset{Symbol: "ETH"},
		Currency:              "USD",
	}
	got := BuildFundingURL(DefaultCheckoutURL, snap)
	assert.Contains(t, got, "sessionToken=sessionToken")
	assert.Contains(t, got, "presetFiatAmount=100")
	assert.NotContains(t, got, "presetCryptoAmount")
	assert.Contains(t, got, "paymentMethod=FIAT_WALLET")
	assert.Contains(t, got, "asset=ETH")
	assert.Contains(t, got, "currency=USD")
}

func TestBuildFundingURLCrypto(t *testing.T) {
	snap := Snapshot{
		SessionToken:          "sessionToken",
		SelectedPaymentMethod: &PaymentMethod{ID: "CRYPTO_WALLET"},
		InputType:             InputCrypto,
		FundAmountFiat:        "0",
		FundAmountCrypto:      "1.5",
		Asset:                 Asset{Symbol: "ETH"},
		Currency:              "USD",
	}
	got := BuildFundingURL(DefaultCheckoutURL, snap)
	assert.Contains(t, got, "sessionToken=sessionToken")
	assert.Contains(t, got, "presetCryptoAmount=1.5")
	assert.NotContains(t, got, "presetFiatAmount")
}

func TestBuildFundingURLZeroAmountSendsNoPreset(t *testing.T) {
	got := BuildFundingURL("", Snapshot{SessionToken: "tok", InputType: InputFiat, FundAmountFiat: "0"})
	assert.NotContains(t, got, "presetFiatAmount")
	assert.NotContains(t, got, "presetCryptoAmount")
	assert.NotContains(t, got, "paymentMethod")
}

func TestBuildFundingURLDeterministic(t *testing.T) {
	s := newTestSession(t)
	s.SetAmount("42", InputFiat)
	snap := s.Snapshot()

	a := BuildFundingURL("https://pay.example.com/buy?appId=1", snap)
	b := BuildFundingURL("https://pay.example.com/buy?appId=1", snap)
	assert.Equal(t, a, b)

	u, err := url.Parse(a)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "1", q.Get("appId"))
	assert.Equal(t, "test-session-token", q.Get("sessionToken"))
	assert.Equal(t, "42", q.Get("presetFiatAmount"))
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("https://pay.coinbase.com/buy?sessionToken=secret&asset=BTC")
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "asset=BTC")
}
