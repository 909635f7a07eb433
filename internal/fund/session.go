package fund

import (
	"slices"
	"strings"
)

// Props are the construction inputs of a funding session.
type Props struct {
	AssetSymbol        string
	Country            string
	Subdivision        string
	Currency           string
	SessionToken       string
	PresetAmountInputs *PresetAmountInputs
}

// Snapshot is a point-in-time copy of a Session. Consumers must not keep one
// past the next change notification.
type Snapshot struct {
	SessionToken          string
	Asset                 Asset
	Country               string
	Subdivision           string
	Currency              string
	InputType             InputType
	FundAmountFiat        string
	FundAmountCrypto      string
	SelectedPaymentMethod *PaymentMethod
	PaymentMethods        []PaymentMethod
	PresetAmountInputs    *PresetAmountInputs
	SubmitState           SubmitState
	Quote                 *Quote
	QuoteLoading          bool
	QuoteErr              error
	OptionsLoading        bool
	OptionsErr            error
}

// AuthoritativeAmount returns the amount the user typed, in the denomination
// selected by InputType.
func (s Snapshot) AuthoritativeAmount() string {
	if s.InputType == InputCrypto {
		return s.FundAmountCrypto
	}
	return s.FundAmountFiat
}

// CanSubmit reports whether the call-to-action is enabled.
func (s Snapshot) CanSubmit() bool {
	return s.SubmitState != StateLoading && IsPositive(s.AuthoritativeAmount())
}

// CurrencyLabel is the denomination shown next to the amount input.
func (s Snapshot) CurrencyLabel() string {
	if s.InputType == InputCrypto {
		return s.Asset.Symbol
	}
	return s.Currency
}

// Session is the funding context shared by every part of the widget. All
// mutation goes through its setters, and every change is announced to
// subscribers. A Session is not safe for concurrent use; a single goroutine
// (the UI loop) owns it.
type Session struct {
	token       string
	asset       Asset
	country     string
	subdivision string
	currency    string
	presets     *PresetAmountInputs

	inputType   InputType
	fiat        string
	crypto      string
	method      *PaymentMethod
	methods     []PaymentMethod
	submitState SubmitState

	quote          *Quote
	quoteErr       error
	quoteLoading   bool
	quoteGen       uint64
	optionsErr     error
	optionsLoading bool
	optionsGen     uint64

	observers map[uint64]func(Snapshot)
	nextObs   uint64
	closed    bool
}

// NewSession validates props and returns a session in its initial state:
// fiat input, zero amounts, no payment method, default submit state.
func NewSession(p Props) (*Session, error) {
	if strings.TrimSpace(p.SessionToken) == "" {
		return nil, ErrMissingSessionToken
	}
	if strings.TrimSpace(p.AssetSymbol) == "" {
		return nil, ErrMissingAsset
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "USD"
	}
	s := &Session{
		token:       p.SessionToken,
		asset:       Asset{Symbol: strings.ToUpper(strings.TrimSpace(p.AssetSymbol))},
		country:     strings.ToUpper(strings.TrimSpace(p.Country)),
		subdivision: strings.ToUpper(strings.TrimSpace(p.Subdivision)),
		currency:    currency,
		inputType:   InputFiat,
		submitState: StateDefault,
		observers:   map[uint64]func(Snapshot){},
	}
	if p.PresetAmountInputs != nil {
		presets := *p.PresetAmountInputs
		s.presets = &presets
	}
	return s, nil
}

func (s *Session) SessionToken() string     { return s.token }
func (s *Session) Asset() Asset             { return s.asset }
func (s *Session) Country() string          { return s.country }
func (s *Session) Currency() string         { return s.currency }
func (s *Session) InputType() InputType     { return s.inputType }
func (s *Session) FundAmountFiat() string   { return s.fiat }
func (s *Session) FundAmountCrypto() string { return s.crypto }
func (s *Session) SubmitState() SubmitState { return s.submitState }
func (s *Session) CanSubmit() bool          { return s.Snapshot().CanSubmit() }

func (s *Session) SelectedPaymentMethod() *PaymentMethod {
	if s.method == nil {
		return nil
	}
	pm := *s.method
	return &pm
}

func (s *Session) PresetAmountInputs() *PresetAmountInputs {
	if s.presets == nil {
		return nil
	}
	p := *s.presets
	return &p
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionToken:          s.token,
		Asset:                 s.asset,
		Country:               s.country,
		Subdivision:           s.subdivision,
		Currency:              s.currency,
		InputType:             s.inputType,
		FundAmountFiat:        s.fiat,
		FundAmountCrypto:      s.crypto,
		SelectedPaymentMethod: s.SelectedPaymentMethod(),
		PaymentMethods:        slices.Clone(s.methods),
		PresetAmountInputs:    s.PresetAmountInputs(),
		SubmitState:           s.submitState,
		QuoteLoading:          s.quoteLoading,
		QuoteErr:              s.quoteErr,
		OptionsLoading:        s.optionsLoading,
		OptionsErr:            s.optionsErr,
	}
	if s.quote != nil {
		q := *s.quote
		snap.Quote = &q
	}
	return snap
}

// SetAmount records value as the amount typed in source's denomination.
// Invalid input becomes zero. The other denomination is cleared until the
// next quote arrives, and any in-flight quote is superseded.
func (s *Session) SetAmount(value string, source InputType) {
	if !source.Valid() {
		source = InputFiat
	}
	amount := NormalizeAmount(value)
	s.inputType = source
	if source == InputFiat {
		s.fiat = amount
		s.crypto = ""
	} else {
		s.crypto = amount
		s.fiat = ""
	}
	s.invalidateQuote()
	s.clearOutcome()
	s.notify()
}

// SelectPreset applies a preset button. Presets are always fiat.
func (s *Session) SelectPreset(amount string) {
	s.SetAmount(amount, InputFiat)
}

// SetInputType switches the denomination being edited. Both amount fields
// keep their values.
func (s *Session) SetInputType(t InputType) error {
	if !t.Valid() {
		return ErrInvalidInputType
	}
	if t == s.inputType {
		return nil
	}
	s.inputType = t
	s.invalidateQuote()
	s.clearOutcome()
	s.notify()
	return nil
}

// SetSelectedPaymentMethod selects one of the methods from the last options
// result.
func (s *Session) SetSelectedPaymentMethod(id string) error {
	for i := range s.methods {
		if s.methods[i].ID == id {
			pm := s.methods[i]
			s.method = &pm
			s.invalidateQuote()
			s.notify()
			return nil
		}
	}
	return ErrUnknownPaymentMethod
}

// SetSubmitState moves the submission state machine. Moves that the state
// machine does not allow return ErrInvalidTransition.
func (s *Session) SetSubmitState(to SubmitState) error {
	if !CanTransition(s.submitState, to) {
		return ErrInvalidTransition
	}
	if s.submitState == to {
		return nil
	}
	s.submitState = to
	s.notify()
	return nil
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the registration.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() { delete(s.observers, id) }
}

// Close ends the session. In-flight fetch results are discarded from now on
// and observers are dropped.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.quoteGen++
	s.optionsGen++
	s.quoteLoading = false
	s.optionsLoading = false
	clear(s.observers)
}

func (s *Session) Closed() bool { return s.closed }

// clearOutcome returns a finished submission to default once the user edits
// the amount again.
func (s *Session) clearOutcome() {
	if s.submitState == StateSuccess || s.submitState == StateError {
		s.submitState = StateDefault
	}
}

func (s *Session) invalidateQuote() {
	s.quoteGen++
	s.quoteLoading = false
}

func (s *Session) notify() {
	if s.closed || len(s.observers) == 0 {
		return
	}
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	snap := s.Snapshot()
	for _, id := range ids {
		if fn, ok := s.observers[id]; ok {
			fn(snap)
		}
	}
}
