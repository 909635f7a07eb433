package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/simonvc/fundcard/internal/bridge"
	"github.com/simonvc/fundcard/internal/fund"
	"github.com/simonvc/fundcard/internal/logging"
)

const (
	defaultDebounce = 300 * time.Millisecond
	defaultPoll     = 500 * time.Millisecond
)

// BodyFunc renders a custom card body in place of the default one. It gets
// the current session state.
type BodyFunc func(fund.Snapshot) string

// AppConfig wires the fund card to its collaborators.
type AppConfig struct {
	Session *fund.Session
	Opener  fund.Opener
	Loader  fund.Loader
	// Events carries popup activity from the browser bridge. It may be nil.
	Events <-chan bridge.Event

	CheckoutURL  string
	Sizer        fund.SizeFunc
	OnStatus     []func(fund.LifecycleStatus)
	Debounce     time.Duration
	PollInterval time.Duration

	HeaderText string
	ButtonText string
	Body       BodyFunc
	Logger     *log.Logger
}

type optionsLoadedMsg struct {
	res fund.OptionsResult
}

type quoteDueMsg struct {
	req fund.QuoteRequest
}

type quoteLoadedMsg struct {
	res fund.QuoteResult
}

type pollMsg struct{}

type popupEventMsg struct {
	ev bridge.Event
}

type eventsClosedMsg struct{}

// quoteKey is what a quote depends on; a change schedules a new quote.
type quoteKey struct {
	amount    string
	inputType fund.InputType
	method    string
}

// App is the fund card. It owns the session and supervisor: every call into
// them happens in Update.
type App struct {
	session *fund.Session
	sv      *fund.Supervisor
	relay   *fund.Relay
	loader  fund.Loader
	events  <-chan bridge.Event
	logger  *log.Logger

	debounce time.Duration
	poll     time.Duration
	header   string
	button   string
	body     BodyFunc

	input   textinput.Model
	spinner spinner.Model
	width   int
	height  int

	err       error
	statusMsg string

	unsubscribe  func()
	lastKey      quoteKey
	quoteDirty   bool
	pendingQuote uint64
	polling      bool
	quitting     bool

	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

func NewApp(cfg AppConfig) *App {
	a := &App{
		session:  cfg.Session,
		relay:    fund.NewRelay(),
		loader:   cfg.Loader,
		events:   cfg.Events,
		logger:   logging.Or(cfg.Logger),
		debounce: cfg.Debounce,
		poll:     cfg.PollInterval,
		header:   cfg.HeaderText,
		button:   cfg.ButtonText,
		body:     cfg.Body,
		tick:     tea.Tick,
	}
	if a.debounce <= 0 {
		a.debounce = defaultDebounce
	}
	if a.poll <= 0 {
		a.poll = defaultPoll
	}
	if a.header == "" {
		a.header = "Buy " + cfg.Session.Asset().Symbol
	}

	opts := []fund.SupervisorOption{fund.WithStatusHandler(a.onStatus)}
	if cfg.CheckoutURL != "" {
		opts = append(opts, fund.WithCheckoutURL(cfg.CheckoutURL))
	}
	if cfg.Sizer != nil {
		opts = append(opts, fund.WithSizer(cfg.Sizer))
	}
	for _, fn := range cfg.OnStatus {
		opts = append(opts, fund.WithStatusHandler(fn))
	}
	a.sv = fund.NewSupervisor(cfg.Session, cfg.Opener, a.relay, opts...)

	a.input = newAmountInput()
	a.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(selectedStyle))

	a.syncInput()
	a.lastKey = keyOf(a.session.Snapshot())
	a.unsubscribe = a.session.Subscribe(a.observe)
	return a
}

// Session exposes the funding session to custom bodies and hosts.
func (a *App) Session() *fund.Session { return a.session }

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadOptions(), a.waitForEvent(), textinput.Blink}
	if fund.IsPositive(a.session.Snapshot().AuthoritativeAmount()) {
		cmds = append(cmds, a.scheduleQuote())
	}
	return tea.Batch(cmds...)
}

// Close tears the card down: the popup is closed and in-flight fetch
// results are discarded.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.sv.Close()
	a.session.Close()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	if a.quoteDirty && !a.quitting {
		a.quoteDirty = false
		cmd = tea.Batch(cmd, a.scheduleQuote())
	}
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return nil

	case optionsLoadedMsg:
		if a.session.ApplyOptionsResult(msg.res.Request, msg.res.Options, msg.res.Err) && msg.res.Err != nil {
			a.logger.Warn("load payment options", "err", msg.res.Err)
		}
		return nil

	case quoteDueMsg:
		if msg.req.Generation != a.pendingQuote {
			return nil
		}
		return a.loadQuote(msg.req)

	case quoteLoadedMsg:
		if a.session.ApplyQuoteResult(msg.res.Request, msg.res.Quote, msg.res.Err) && msg.res.Err != nil {
			a.logger.Warn("load quote", "err", msg.res.Err)
		}
		return nil

	case pollMsg:
		if a.sv.Poll() {
			return a.schedulePoll()
		}
		a.polling = false
		return nil

	case popupEventMsg:
		bridge.Dispatch(msg.ev, a.relay)
		a.sv.Poll()
		return a.waitForEvent()

	case eventsClosedMsg:
		a.events = nil
		return nil

	case spinner.TickMsg:
		if a.session.SubmitState() != fund.StateLoading {
			return nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		a.quitting = true
		a.Close()
		return tea.Quit

	case key.Matches(msg, keys.Switch):
		a.err = nil
		if err := a.session.SetInputType(a.session.InputType().Toggle()); err != nil {
			a.err = err
			return nil
		}
		a.syncInput()
		return nil

	case key.Matches(msg, keys.Payment):
		a.cyclePaymentMethod()
		return nil

	case key.Matches(msg, keys.Submit):
		return a.submit()
	}

	for i, b := range keys.presets() {
		if key.Matches(msg, b) {
			a.selectPreset(i)
			return nil
		}
	}

	if !amountKey(msg) {
		return nil
	}
	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if !validAmountText(a.input.Value()) {
		a.input.SetValue(before)
		return cmd
	}
	if a.input.Value() != before {
		a.err = nil
		a.statusMsg = ""
		a.session.SetAmount(a.input.Value(), a.session.InputType())
	}
	return cmd
}

func (a *App) submit() tea.Cmd {
	snap := a.session.Snapshot()
	if snap.SubmitState == fund.StateLoading || !snap.CanSubmit() {
		return nil
	}
	a.err = nil
	a.statusMsg = ""
	if err := a.sv.Submit(context.Background()); err != nil {
		a.err = err
		a.logger.Warn("open checkout", "err", err)
		return nil
	}
	var cmds []tea.Cmd
	if a.session.SubmitState() == fund.StateLoading {
		cmds = append(cmds, a.spinner.Tick)
	}
	if a.sv.Phase() == fund.PopupOpen && !a.polling {
		cmds = append(cmds, a.schedulePoll())
	}
	return tea.Batch(cmds...)
}

func (a *App) selectPreset(i int) {
	presets := a.session.PresetAmountInputs()
	if presets == nil || presets[i] == "" {
		return
	}
	a.err = nil
	a.statusMsg = ""
	a.session.SelectPreset(presets[i])
	a.syncInput()
}

func (a *App) cyclePaymentMethod() {
	snap := a.session.Snapshot()
	if len(snap.PaymentMethods) == 0 {
		return
	}
	next := 0
	if snap.SelectedPaymentMethod != nil {
		for i, pm := range snap.PaymentMethods {
			if pm.ID == snap.SelectedPaymentMethod.ID {
				next = (i + 1) % len(snap.PaymentMethods)
				break
			}
		}
	}
	if err := a.session.SetSelectedPaymentMethod(snap.PaymentMethods[next].ID); err != nil {
		a.err = err
	}
}

// syncInput shows the authoritative amount after it changed outside the
// input, for a preset or an input type switch.
func (a *App) syncInput() {
	amount := a.session.Snapshot().AuthoritativeAmount()
	if !fund.IsPositive(amount) {
		amount = ""
	}
	a.input.SetValue(amount)
	a.input.CursorEnd()
}

// observe watches the session for changes a quote depends on.
func (a *App) observe(snap fund.Snapshot) {
	k := keyOf(snap)
	if k != a.lastKey {
		a.lastKey = k
		a.quoteDirty = true
	}
}

func keyOf(snap fund.Snapshot) quoteKey {
	k := quoteKey{amount: snap.AuthoritativeAmount(), inputType: snap.InputType}
	if snap.SelectedPaymentMethod != nil {
		k.method = snap.SelectedPaymentMethod.ID
	}
	return k
}

func (a *App) onStatus(st fund.LifecycleStatus) {
	switch st.Name {
	case fund.StatusInit:
		a.statusMsg = "Checkout opened in your browser"
	case fund.StatusSuccess:
		a.statusMsg = "Purchase complete"
	case fund.StatusExit:
		a.statusMsg = "Checkout closed"
	case fund.StatusError:
		a.statusMsg = ""
		a.err = st.Err
	}
}

func (a *App) loadOptions() tea.Cmd {
	if a.loader.Fetcher == nil {
		return nil
	}
	req := a.session.RequestOptions()
	loader := a.loader
	return func() tea.Msg {
		return optionsLoadedMsg{res: loader.LoadOptions(context.Background(), req)}
	}
}

// scheduleQuote issues a quote request and fetches it after the debounce
// delay, unless a newer request supersedes it first.
func (a *App) scheduleQuote() tea.Cmd {
	req, ok := a.session.RequestQuote()
	a.pendingQuote = req.Generation
	if !ok || a.loader.Fetcher == nil {
		return nil
	}
	return a.tick(a.debounce, func(time.Time) tea.Msg {
		return quoteDueMsg{req: req}
	})
}

func (a *App) loadQuote(req fund.QuoteRequest) tea.Cmd {
	loader := a.loader
	return func() tea.Msg {
		return quoteLoadedMsg{res: loader.LoadQuote(context.Background(), req)}
	}
}

func (a *App) schedulePoll() tea.Cmd {
	a.polling = true
	return a.tick(a.poll, func(time.Time) tea.Msg { return pollMsg{} })
}

func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return popupEventMsg{ev: ev}
	}
}
