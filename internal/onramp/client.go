package onramp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/simonvc/fundcard/internal/fund"
)

const (
	optionsPath = "/onramp/v1/buy/options"
	quotePath   = "/onramp/v1/buy/quote"
)

// ErrUnsupportedAsset is returned when the backend does not sell the asset
// in the requested country.
var ErrUnsupportedAsset = errors.New("asset is not available for purchase")

// APIError is a non-2xx response from the onramp backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("onramp error (%d): %s", e.Status, e.Message)
}

// Client fetches quotes and payment options from the onramp backend. It
// implements fund.Fetcher.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger logs every request through a logging transport.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		inner := c.httpClient.Transport
		c.httpClient = &http.Client{
			Timeout:   c.httpClient.Timeout,
			Transport: NewTransport(inner, l),
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ fund.Fetcher = (*Client)(nil)

type amountValue struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (a amountValue) decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(a.Value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

type paymentLimit struct {
	ID  string `json:"id"`
	Min string `json:"min"`
	Max string `json:"max"`
}

type paymentCurrency struct {
	ID     string         `json:"id"`
	Limits []paymentLimit `json:"limits"`
}

type purchaseCurrency struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type optionsResponse struct {
	PaymentCurrencies  []paymentCurrency  `json:"payment_currencies"`
	PurchaseCurrencies []purchaseCurrency `json:"purchase_currencies"`
}

// FetchOnrampOptions returns the payment methods available for buying the
// asset in the country, with limits for the requested fiat currency.
func (c *Client) FetchOnrampOptions(ctx context.Context, p fund.OptionsParams) (*fund.Options, error) {
	params := url.Values{}
	params.Set("country", p.Country)
	if p.Subdivision != "" {
		params.Set("subdivision", p.Subdivision)
	}
	var resp optionsResponse
	if err := c.get(ctx, optionsPath+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if p.Asset != "" && len(resp.PurchaseCurrencies) > 0 && !sellsAsset(resp.PurchaseCurrencies, p.Asset) {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnsupportedAsset, p.Asset, p.Country)
	}
	return &fund.Options{PaymentMethods: buildPaymentMethods(resp.PaymentCurrencies, p.Currency)}, nil
}

type quoteRequest struct {
	PurchaseCurrency string `json:"purchase_currency"`
	PaymentCurrency  string `json:"payment_currency"`
	PaymentAmount    string `json:"payment_amount,omitempty"`
	PurchaseAmount   string `json:"purchase_amount,omitempty"`
	PaymentMethod    string `json:"payment_method"`
	Country          string `json:"country"`
	Subdivision      string `json:"subdivision,omitempty"`
}

type quoteResponse struct {
	PaymentTotal    amountValue `json:"payment_total"`
	PaymentSubtotal amountValue `json:"payment_subtotal"`
	PurchaseAmount  amountValue `json:"purchase_amount"`
	CoinbaseFee     amountValue `json:"coinbase_fee"`
	NetworkFee      amountValue `json:"network_fee"`
	QuoteID         string      `json:"quote_id"`
}

// FetchOnrampQuote prices the amount. Fiat amounts are sent as the payment
// amount, crypto amounts as the purchase amount.
func (c *Client) FetchOnrampQuote(ctx context.Context, p fund.QuoteParams) (*fund.Quote, error) {
	body := quoteRequest{
		PurchaseCurrency: p.Asset,
		PaymentCurrency:  p.Currency,
		PaymentMethod:    p.PaymentMethod,
		Country:          p.Country,
		Subdivision:      p.Subdivision,
	}
	if body.PaymentMethod == "" {
		body.PaymentMethod = "UNSPECIFIED"
	}
	if p.InputType == fund.InputCrypto {
		body.PurchaseAmount = p.Amount
	} else {
		body.PaymentAmount = p.Amount
	}

	var resp quoteResponse
	if err := c.post(ctx, quotePath, body, &resp); err != nil {
		return nil, err
	}

	q := &fund.Quote{
		QuoteID:      resp.QuoteID,
		Asset:        firstNonEmpty(resp.PurchaseAmount.Currency, p.Asset),
		Currency:     firstNonEmpty(resp.PaymentSubtotal.Currency, p.Currency),
		FiatAmount:   resp.PaymentSubtotal.decimal(),
		CryptoAmount: resp.PurchaseAmount.decimal(),
		PaymentTotal: resp.PaymentTotal.decimal(),
		CoinbaseFee:  resp.CoinbaseFee.decimal(),
		NetworkFee:   resp.NetworkFee.decimal(),
	}
	if !q.FiatAmount.IsZero() {
		q.ExchangeRate = q.CryptoAmount.DivRound(q.FiatAmount, 18)
	}
	return q, nil
}

func sellsAsset(currencies []purchaseCurrency, asset string) bool {
	for _, pc := range currencies {
		if strings.EqualFold(pc.Symbol, asset) || strings.EqualFold(pc.ID, asset) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, result)
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) doRequest(req *http.Request, result any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
		var body apiError
		if json.Unmarshal(bodyBytes, &body) == nil {
			if msg := firstNonEmpty(body.Message, body.Error); msg != "" {
				apiErr.Message = msg
			}
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
