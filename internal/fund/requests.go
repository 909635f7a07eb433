package fund

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// OptionsParams identify an options fetch.
type OptionsParams struct {
	Country     string
	Subdivision string
	Asset       string
	// Currency picks which payment limits apply.
	Currency string
}

// QuoteParams identify a quote fetch.
type QuoteParams struct {
	Asset         string
	Currency      string
	Country       string
	Subdivision   string
	Amount        string
	InputType     InputType
	PaymentMethod string
}

// OptionsRequest is an options fetch tagged with the generation it was
// issued under.
type OptionsRequest struct {
	Generation uint64
	Params     OptionsParams
}

// QuoteRequest is a quote fetch tagged with the generation it was issued
// under.
type QuoteRequest struct {
	Generation uint64
	Params     QuoteParams
}

// Fetcher talks to the onramp backend.
type Fetcher interface {
	FetchOnrampOptions(ctx context.Context, p OptionsParams) (*Options, error)
	FetchOnrampQuote(ctx context.Context, p QuoteParams) (*Quote, error)
}

// RequestOptions issues a new options request. Any earlier request that has
// not been applied yet becomes stale.
func (s *Session) RequestOptions() OptionsRequest {
	s.optionsGen++
	s.optionsLoading = !s.closed
	req := OptionsRequest{
		Generation: s.optionsGen,
		Params: OptionsParams{
			Country:     s.country,
			Subdivision: s.subdivision,
			Asset:       s.asset.Symbol,
			Currency:    s.currency,
		},
	}
	s.notify()
	return req
}

// ApplyOptionsResult applies the outcome of req. It returns false, leaving
// the session untouched, if req is no longer the latest options request.
// A failure keeps the payment method selection as it was and surfaces the
// error; a success selects the first method when none is selected.
func (s *Session) ApplyOptionsResult(req OptionsRequest, opts *Options, err error) bool {
	if s.closed || req.Generation != s.optionsGen {
		return false
	}
	s.optionsLoading = false
	if err != nil {
		s.optionsErr = err
		s.notify()
		return true
	}
	s.optionsErr = nil
	s.methods = nil
	if opts != nil {
		s.methods = append(s.methods, opts.PaymentMethods...)
	}
	if s.method != nil {
		if _, ok := (&Options{PaymentMethods: s.methods}).Find(s.method.ID); !ok {
			s.method = nil
		}
	}
	if s.method == nil && len(s.methods) > 0 {
		pm := s.methods[0]
		s.method = &pm
	}
	s.notify()
	return true
}

// RequestQuote issues a quote request for the current amount. It reports
// false when there is nothing to quote. A typed zero makes the derived amount
// zero as well; an amount that was never typed or quoted leaves the other
// field alone. Either way earlier quote requests become stale.
func (s *Session) RequestQuote() (QuoteRequest, bool) {
	s.quoteGen++
	amount := s.Snapshot().AuthoritativeAmount()
	if s.closed || !IsPositive(amount) {
		s.quoteLoading = false
		if amount != "" {
			s.setDerived("0")
		}
		s.notify()
		return QuoteRequest{Generation: s.quoteGen}, false
	}
	req := QuoteRequest{
		Generation: s.quoteGen,
		Params: QuoteParams{
			Asset:       s.asset.Symbol,
			Currency:    s.currency,
			Country:     s.country,
			Subdivision: s.subdivision,
			Amount:      amount,
			InputType:   s.inputType,
		},
	}
	if s.method != nil {
		req.Params.PaymentMethod = s.method.ID
	}
	s.quoteLoading = true
	s.notify()
	return req, true
}

// ApplyQuoteResult applies the outcome of req. Results of superseded
// requests, and quotes for another input type, asset or currency, are
// discarded and false is returned. A quote recomputes the derived amount
// from its exchange rate.
func (s *Session) ApplyQuoteResult(req QuoteRequest, q *Quote, err error) bool {
	if s.closed || req.Generation != s.quoteGen {
		return false
	}
	if req.Params.InputType != s.inputType {
		return false
	}
	if err == nil && q == nil {
		err = errors.New("empty quote")
	}
	if err == nil && !s.quoteMatches(q) {
		return false
	}
	s.quoteLoading = false
	if err != nil {
		s.quoteErr = err
		s.notify()
		return true
	}
	quote := *q
	s.quote = &quote
	s.quoteErr = nil
	amount := ParseAmount(s.Snapshot().AuthoritativeAmount())
	s.setDerived(convert(amount, quote.ExchangeRate, s.inputType))
	s.notify()
	return true
}

func (s *Session) quoteMatches(q *Quote) bool {
	if q.Asset != "" && !strings.EqualFold(q.Asset, s.asset.Symbol) {
		return false
	}
	if q.Currency != "" && !strings.EqualFold(q.Currency, s.currency) {
		return false
	}
	return true
}

func (s *Session) setDerived(v string) {
	if s.inputType == InputFiat {
		s.crypto = v
	} else {
		s.fiat = v
	}
}

// OptionsResult carries a finished options fetch back to the session owner.
type OptionsResult struct {
	Request OptionsRequest
	Options *Options
	Err     error
}

// QuoteResult carries a finished quote fetch back to the session owner.
type QuoteResult struct {
	Request QuoteRequest
	Quote   *Quote
	Err     error
}

// Loader runs fetch requests with an upper time bound. It never touches a
// Session, so it may run on any goroutine; results are applied by the owner.
type Loader struct {
	Fetcher Fetcher
	Timeout time.Duration
}

func (l Loader) LoadOptions(ctx context.Context, req OptionsRequest) OptionsResult {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	opts, err := l.Fetcher.FetchOnrampOptions(ctx, req.Params)
	return OptionsResult{Request: req, Options: opts, Err: timeoutErr(ctx, "fetch options", err)}
}

func (l Loader) LoadQuote(ctx context.Context, req QuoteRequest) QuoteResult {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	q, err := l.Fetcher.FetchOnrampQuote(ctx, req.Params)
	return QuoteResult{Request: req, Quote: q, Err: timeoutErr(ctx, "fetch quote", err)}
}

func (l Loader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.Timeout)
}

func timeoutErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrFetchTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
