package fund

import (
	"context"
	"errors"
	"fmt"
)

// Handle is a live checkout popup.
type Handle interface {
	// ID identifies the popup in messages it posts.
	ID() string
	// Closed reports whether the window is gone.
	Closed() bool
	// Err is non-nil when the window closed because it failed, for
	// example because the browser blocked it.
	Err() error
	// Close asks the window to close.
	Close() error
}

// Opener opens checkout popups.
type Opener interface {
	Open(ctx context.Context, checkoutURL string, size PopupSize) (Handle, error)
}

// PopupPhase is the supervisor's view of the popup.
type PopupPhase int

const (
	PopupNone PopupPhase = iota
	PopupOpen
	PopupClosed
)

func (p PopupPhase) String() string {
	switch p {
	case PopupOpen:
		return "open"
	case PopupClosed:
		return "closed"
	default:
		return "no-popup"
	}
}

type StatusName string

const (
	StatusInit    StatusName = "init"
	StatusExit    StatusName = "exit"
	StatusSuccess StatusName = "success"
	StatusError   StatusName = "error"
)

// LifecycleStatus reports a step of a checkout attempt to status handlers.
type LifecycleStatus struct {
	Name     StatusName
	PopupID  string
	Snapshot Snapshot
	Message  *PopupMessage
	Err      error
}

// Supervisor opens the checkout popup on submit and drives the submission
// state from the popup's lifecycle. It tracks at most one popup; opening a
// new one closes the old. Like Session, it is owned by one goroutine.
type Supervisor struct {
	session     *Session
	opener      Opener
	channel     MessageChannel
	sizer       SizeFunc
	checkoutURL string
	handlers    []func(LifecycleStatus)

	phase       PopupPhase
	handle      Handle
	unsubscribe func()
	outcome     EventName
}

type SupervisorOption func(*Supervisor)

func WithCheckoutURL(base string) SupervisorOption {
	return func(sv *Supervisor) { sv.checkoutURL = base }
}

func WithSizer(fn SizeFunc) SupervisorOption {
	return func(sv *Supervisor) { sv.sizer = fn }
}

// WithStatusHandler adds a handler for lifecycle statuses. Handlers run in
// the order they were added.
func WithStatusHandler(fn func(LifecycleStatus)) SupervisorOption {
	return func(sv *Supervisor) { sv.handlers = append(sv.handlers, fn) }
}

func NewSupervisor(s *Session, opener Opener, channel MessageChannel, opts ...SupervisorOption) *Supervisor {
	sv := &Supervisor{
		session:     s,
		opener:      opener,
		channel:     channel,
		checkoutURL: DefaultCheckoutURL,
		sizer:       FixedSizer(SizeMedium, Viewport{}),
	}
	for _, opt := range opts {
		opt(sv)
	}
	return sv
}

func (sv *Supervisor) Phase() PopupPhase { return sv.phase }

// Submit starts a checkout: it builds the URL from the current session,
// opens one popup and moves the session to loading. A submit while loading
// does nothing. If the popup cannot be opened the session returns to default
// and the error is returned.
func (sv *Supervisor) Submit(ctx context.Context) error {
	if sv.session.Closed() {
		return ErrSessionClosed
	}
	if sv.session.SubmitState() == StateLoading {
		return nil
	}
	snap := sv.session.Snapshot()
	if !snap.CanSubmit() {
		return ErrNotSubmittable
	}
	checkout := BuildFundingURL(sv.checkoutURL, snap)
	size := sv.sizer(checkout)

	sv.release()
	if err := sv.session.SetSubmitState(StateLoading); err != nil {
		return err
	}

	h, err := sv.opener.Open(ctx, checkout, size)
	if err == nil && h == nil {
		err = ErrPopupUnavailable
	}
	if err != nil {
		if !errors.Is(err, ErrPopupBlocked) && !errors.Is(err, ErrPopupUnavailable) {
			err = fmt.Errorf("%w: %w", ErrPopupUnavailable, err)
		}
		_ = sv.session.SetSubmitState(StateDefault)
		sv.emit(LifecycleStatus{Name: StatusError, Err: err})
		return err
	}

	sv.handle = h
	sv.phase = PopupOpen
	sv.outcome = ""
	sv.unsubscribe = sv.channel.Subscribe(sv.receive)
	sv.emit(LifecycleStatus{Name: StatusInit, PopupID: h.ID()})
	sv.Poll()
	return nil
}

// Poll checks the popup and settles the attempt once it has closed. A close
// after a success or error message keeps that outcome; a bare close is a
// cancellation and returns the session to default. Poll reports whether the
// popup is still open.
func (sv *Supervisor) Poll() bool {
	if sv.phase != PopupOpen || sv.handle == nil {
		return false
	}
	if !sv.handle.Closed() {
		return true
	}
	h := sv.handle
	outcome := sv.outcome
	sv.detach()

	if outcome.Terminal() {
		return false
	}
	if sv.session.SubmitState() == StateLoading {
		_ = sv.session.SetSubmitState(StateDefault)
	}
	if err := h.Err(); err != nil {
		sv.emit(LifecycleStatus{Name: StatusError, PopupID: h.ID(), Err: err})
	} else {
		sv.emit(LifecycleStatus{Name: StatusExit, PopupID: h.ID()})
	}
	return false
}

// Close tears the supervisor down: the popup is closed, polling stops and
// the message handler is deregistered. A checkout still in progress ends
// with an exit status.
func (sv *Supervisor) Close() {
	sv.release()
	sv.handlers = nil
}

func (sv *Supervisor) receive(msg PopupMessage) {
	if sv.phase != PopupOpen || sv.handle == nil {
		return
	}
	if msg.PopupID != "" && msg.PopupID != sv.handle.ID() {
		return
	}
	if sv.outcome.Terminal() {
		return
	}
	sv.outcome = msg.Event

	m := msg
	switch msg.Event {
	case EventSuccess:
		if sv.session.SubmitState() == StateLoading {
			_ = sv.session.SetSubmitState(StateSuccess)
		}
		sv.emit(LifecycleStatus{Name: StatusSuccess, PopupID: sv.handle.ID(), Message: &m})
	case EventError:
		if sv.session.SubmitState() == StateLoading {
			_ = sv.session.SetSubmitState(StateError)
		}
		reason := msg.Error
		if reason == "" {
			reason = "checkout reported an error"
		}
		sv.emit(LifecycleStatus{Name: StatusError, PopupID: sv.handle.ID(), Message: &m, Err: errors.New(reason)})
	}
}

// release closes the tracked popup. An attempt that has not settled yet is
// reported as an exit and the session leaves loading.
func (sv *Supervisor) release() {
	h := sv.handle
	if h == nil {
		sv.detach()
		return
	}
	_ = h.Close()
	settled := sv.phase != PopupOpen || sv.outcome.Terminal()
	sv.detach()
	if settled {
		return
	}
	if sv.session.SubmitState() == StateLoading {
		_ = sv.session.SetSubmitState(StateDefault)
	}
	sv.emit(LifecycleStatus{Name: StatusExit, PopupID: h.ID()})
}

func (sv *Supervisor) detach() {
	if sv.unsubscribe != nil {
		sv.unsubscribe()
		sv.unsubscribe = nil
	}
	if sv.handle != nil {
		sv.phase = PopupClosed
	}
	sv.handle = nil
}

func (sv *Supervisor) emit(st LifecycleStatus) {
	st.Snapshot = sv.session.Snapshot()
	for _, fn := range sv.handlers {
		fn(st)
	}
}
