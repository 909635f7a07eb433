package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/fundcard/internal/fund"
)

type fakeHandle struct {
	id     string
	closed bool
}

func (h *fakeHandle) ID() string   { return h.id }
func (h *fakeHandle) Closed() bool { return h.closed }
func (h *fakeHandle) Err() error   { return nil }
func (h *fakeHandle) Close() error { h.closed = true; return nil }

type fakeOpener struct {
	urls         []string
	handles      []*fakeHandle
	closedOnOpen bool
	err          error
}

func (o *fakeOpener) Open(_ context.Context, checkoutURL string, _ fund.PopupSize) (fund.Handle, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.urls = append(o.urls, checkoutURL)
	h := &fakeHandle{id: "popup", closed: o.closedOnOpen}
	o.handles = append(o.handles, h)
	return h, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	quotes []fund.QuoteParams
	rate   decimal.Decimal
}

func (f *fakeFetcher) FetchOnrampOptions(context.Context, fund.OptionsParams) (*fund.Options, error) {
	return &fund.Options{PaymentMethods: []fund.PaymentMethod{
		{ID: "CARD", Name: "Debit Card", MinAmount: decimal.NewFromInt(5), MaxAmount: decimal.NewFromInt(500)},
		{ID: "ACH_BANK_ACCOUNT", Name: "Bank transfer"},
	}}, nil
}

func (f *fakeFetcher) FetchOnrampQuote(_ context.Context, p fund.QuoteParams) (*fund.Quote, error) {
	f.mu.Lock()
	f.quotes = append(f.quotes, p)
	f.mu.Unlock()
	return &fund.Quote{Asset: p.Asset, Currency: p.Currency, ExchangeRate: f.rate, PaymentTotal: decimal.RequireFromString("102.49")}, nil
}

func immediateTick(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg { return fn(time.Now()) }
}

type testCard struct {
	app     *App
	opener  *fakeOpener
	fetcher *fakeFetcher
}

func newTestCard(t *testing.T, props fund.Props, opts ...func(*AppConfig)) *testCard {
	t.Helper()
	if props.SessionToken == "" {
		props.SessionToken = "test-session-token"
	}
	if props.AssetSymbol == "" {
		props.AssetSymbol = "BTC"
	}
	s, err := fund.NewSession(props)
	require.NoError(t, err)

	tc := &testCard{opener: &fakeOpener{}, fetcher: &fakeFetcher{rate: decimal.RequireFromString("0.00002")}}
	cfg := AppConfig{
		Session: s,
		Opener:  tc.opener,
		Loader:  fund.Loader{Fetcher: tc.fetcher},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	tc.app = NewApp(cfg)
	tc.app.tick = immediateTick
	tc.app.input.Cursor.SetMode(cursor.CursorStatic)
	return tc
}

// drain runs cmd and returns every message it produces, flattening batches.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func (tc *testCard) send(msg tea.Msg) []tea.Msg {
	_, cmd := tc.app.Update(msg)
	return drain(cmd)
}

func (tc *testCard) typeText(s string) {
	for _, r := range s {
		tc.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (tc *testCard) press(k tea.KeyType) []tea.Msg {
	return tc.send(tea.KeyMsg{Type: k})
}

func (tc *testCard) snap() fund.Snapshot { return tc.app.session.Snapshot() }

func TestHeaderAndButtonText(t *testing.T) {
	tc := newTestCard(t, fund.Props{Country: "US"})
	view := tc.app.View()
	assert.Contains(t, view, "Buy BTC")
	assert.Contains(t, view, "Buy")
}

func TestCustomTexts(t *testing.T) {
	tc := newTestCard(t, fund.Props{}, func(c *AppConfig) {
		c.HeaderText = "Top up"
		c.ButtonText = "Purchase"
	})
	view := tc.app.View()
	assert.Contains(t, view, "Top up")
	assert.Contains(t, view, "Purchase")
}

func TestTypingFiatAmount(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("100")
	assert.Equal(t, "100", tc.app.input.Value())
	assert.Equal(t, "100", tc.snap().FundAmountFiat)
}

func TestNonAmountKeysIgnored(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("1x2")
	assert.Equal(t, "12", tc.app.input.Value())
	tc.typeText("..5")
	assert.Equal(t, "12.5", tc.app.input.Value())
	tc.press(tea.KeyBackspace)
	assert.Equal(t, "12.", tc.app.input.Value())
	assert.Equal(t, "12", tc.snap().FundAmountFiat)
}

func TestSwitchToCrypto(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	assert.Contains(t, tc.app.amountView(tc.snap()), "USD")

	tc.press(tea.KeyTab)
	assert.Equal(t, fund.InputCrypto, tc.snap().InputType)
	assert.Contains(t, tc.app.amountView(tc.snap()), "BTC")
}

func TestSwitchBeforeQuoteKeepsAmount(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("100")
	require.Empty(t, tc.snap().FundAmountCrypto, "no quote yet")

	tc.press(tea.KeyTab)
	assert.Equal(t, fund.InputCrypto, tc.snap().InputType)
	assert.Empty(t, tc.app.input.Value())

	tc.press(tea.KeyTab)
	assert.Equal(t, fund.InputFiat, tc.snap().InputType)
	assert.Equal(t, "100", tc.snap().FundAmountFiat)
	assert.Equal(t, "100", tc.app.input.Value())
	assert.True(t, tc.snap().CanSubmit())
}

func TestSubmitDisabledByDefault(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	assert.False(t, tc.snap().CanSubmit())
	tc.press(tea.KeyEnter)
	assert.Empty(t, tc.opener.urls)

	tc.press(tea.KeyTab)
	assert.False(t, tc.snap().CanSubmit())
}

func TestSubmitEnabledWithAmount(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("1000")
	assert.True(t, tc.snap().CanSubmit())

	tc = newTestCard(t, fund.Props{})
	tc.press(tea.KeyTab)
	tc.typeText("1000")
	assert.True(t, tc.snap().CanSubmit())
}

func TestSubmitShowsSpinner(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("1000")
	frame := spinner.Dot.Frames[0]
	assert.NotContains(t, tc.app.buttonView(tc.snap()), frame)

	msgs := tc.press(tea.KeyEnter)
	assert.Equal(t, fund.StateLoading, tc.snap().SubmitState)
	assert.Contains(t, tc.app.buttonView(tc.snap()), frame)
	require.Len(t, tc.opener.urls, 1)
	assert.Contains(t, tc.opener.urls[0], "presetFiatAmount=1000")
	assert.Contains(t, msgs, tea.Msg(pollMsg{}))

	tc.press(tea.KeyEnter)
	assert.Len(t, tc.opener.urls, 1, "submit while loading opens nothing")
}

func TestPopupClosedResetsButton(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.opener.closedOnOpen = true
	tc.typeText("100")
	tc.press(tea.KeyEnter)

	assert.Equal(t, fund.StateDefault, tc.snap().SubmitState)
	assert.True(t, tc.snap().CanSubmit())
	assert.Contains(t, tc.app.View(), "Checkout closed")
}

func TestPollSettlesClosedPopup(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("100")
	tc.press(tea.KeyEnter)
	require.True(t, tc.app.polling)

	assert.Contains(t, tc.send(pollMsg{}), tea.Msg(pollMsg{}), "still open, keeps polling")

	tc.opener.handles[0].closed = true
	assert.Empty(t, tc.send(pollMsg{}))
	assert.False(t, tc.app.polling)
	assert.Equal(t, fund.StateDefault, tc.snap().SubmitState)
}

func TestSuccessMessageShown(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("100")
	tc.press(tea.KeyEnter)

	tc.app.relay.Post(fund.PopupMessage{PopupID: "popup", Event: fund.EventSuccess})
	assert.Equal(t, fund.StateSuccess, tc.snap().SubmitState)
	view := tc.app.View()
	assert.Contains(t, view, "Success")
	assert.Contains(t, view, "Purchase complete")
}

func TestOpenFailureShowsError(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.opener.err = fund.ErrPopupBlocked
	tc.typeText("100")
	tc.press(tea.KeyEnter)

	assert.Equal(t, fund.StateDefault, tc.snap().SubmitState)
	assert.Contains(t, tc.app.View(), fund.ErrPopupBlocked.Error())
}

func TestCustomBody(t *testing.T) {
	tc := newTestCard(t, fund.Props{AssetSymbol: "ETH"}, func(c *AppConfig) {
		c.Body = func(snap fund.Snapshot) string { return "Custom Content " + snap.SessionToken }
	})
	view := tc.app.View()
	assert.Contains(t, view, "Custom Content")
	assert.Contains(t, view, "test-session-token")
	assert.NotContains(t, view, "Buy ETH")
	assert.Equal(t, "test-session-token", tc.app.Session().SessionToken())
}

func TestPresetSelection(t *testing.T) {
	presets := fund.PresetAmountInputs{"12345", "20", "30"}
	tc := newTestCard(t, fund.Props{PresetAmountInputs: &presets})
	assert.Contains(t, tc.app.View(), "$12,345")

	tc.press(tea.KeyF1)
	assert.Equal(t, "12345", strings.ReplaceAll(tc.app.input.Value(), ",", ""))
	assert.Equal(t, "12345", tc.snap().FundAmountFiat)
}

func TestPresetKeysWithoutPresets(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.press(tea.KeyF2)
	assert.Equal(t, "", tc.app.input.Value())
}

func TestOptionsSelectFirstMethod(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	for _, msg := range drain(tc.app.loadOptions()) {
		tc.send(msg)
	}
	snap := tc.snap()
	require.NotNil(t, snap.SelectedPaymentMethod)
	assert.Equal(t, "CARD", snap.SelectedPaymentMethod.ID)

	tc.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	assert.Equal(t, "ACH_BANK_ACCOUNT", tc.snap().SelectedPaymentMethod.ID)
	tc.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	assert.Equal(t, "CARD", tc.snap().SelectedPaymentMethod.ID)
}

func TestLimitHint(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	for _, msg := range drain(tc.app.loadOptions()) {
		tc.send(msg)
	}
	tc.typeText("900")
	assert.Contains(t, tc.app.paymentView(tc.snap()), "$5 to $500")
}

func TestDebouncedQuote(t *testing.T) {
	tc := newTestCard(t, fund.Props{})

	first := tc.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'5'}})
	second := tc.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}})

	var stale, current []quoteDueMsg
	for _, m := range first {
		if q, ok := m.(quoteDueMsg); ok {
			stale = append(stale, q)
		}
	}
	for _, m := range second {
		if q, ok := m.(quoteDueMsg); ok {
			current = append(current, q)
		}
	}
	require.Len(t, stale, 1)
	require.Len(t, current, 1)

	assert.Empty(t, tc.send(stale[0]), "superseded quote is never fetched")

	loaded := tc.send(current[0])
	require.Len(t, loaded, 1)
	tc.send(loaded[0])

	require.Len(t, tc.fetcher.quotes, 1)
	assert.Equal(t, "50", tc.fetcher.quotes[0].Amount)
	assert.Equal(t, "0.001", tc.snap().FundAmountCrypto)
	assert.Contains(t, tc.app.View(), "$102.49")
}

func TestQuitClosesSession(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.typeText("100")
	tc.press(tea.KeyEnter)

	_, cmd := tc.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, tc.app.session.Closed())
	assert.True(t, tc.opener.handles[0].closed)
	assert.Equal(t, fund.StateDefault, tc.snap().SubmitState)
}

func TestErrorsClearOnEdit(t *testing.T) {
	tc := newTestCard(t, fund.Props{})
	tc.app.err = errors.New("boom")
	tc.typeText("1")
	assert.NoError(t, tc.app.err)
}
