package history

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/simonvc/fundcard/internal/fund"
	"github.com/simonvc/fundcard/internal/logging"
	"github.com/simonvc/fundcard/internal/store"
)

// Attempts is the part of the store the recorder writes to.
type Attempts interface {
	CreateAttempt(ctx context.Context, a *store.Attempt) error
	FinishAttempt(ctx context.Context, id string, outcome store.Outcome, reason string) error
}

// Recorder writes checkout attempts from supervisor lifecycle statuses. Use
// Handle as a fund.WithStatusHandler. Write failures are logged and never
// reach the checkout flow.
type Recorder struct {
	attempts Attempts
	logger   *log.Logger
	timeout  time.Duration

	// open maps popup ids to attempt ids.
	open map[string]string
}

func NewRecorder(attempts Attempts, logger *log.Logger) *Recorder {
	return &Recorder{
		attempts: attempts,
		logger:   logging.Or(logger),
		timeout:  2 * time.Second,
		open:     map[string]string{},
	}
}

func (r *Recorder) Handle(st fund.LifecycleStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	switch st.Name {
	case fund.StatusInit:
		a := attemptFrom(st)
		if err := r.attempts.CreateAttempt(ctx, a); err != nil {
			r.logger.Error("record attempt", "popup", st.PopupID, "err", err)
			return
		}
		r.open[st.PopupID] = a.ID
	case fund.StatusSuccess:
		r.finish(ctx, st, store.OutcomeSuccess)
	case fund.StatusExit:
		r.finish(ctx, st, store.OutcomeExit)
	case fund.StatusError:
		if st.PopupID == "" {
			r.recordFailedOpen(ctx, st)
			return
		}
		r.finish(ctx, st, store.OutcomeError)
	}
}

func (r *Recorder) finish(ctx context.Context, st fund.LifecycleStatus, outcome store.Outcome) {
	id, ok := r.open[st.PopupID]
	if !ok {
		return
	}
	delete(r.open, st.PopupID)

	var reason string
	if st.Err != nil {
		reason = st.Err.Error()
	}
	err := r.attempts.FinishAttempt(ctx, id, outcome, reason)
	if errors.Is(err, store.ErrAttemptFinished) {
		return
	}
	if err != nil {
		r.logger.Error("finish attempt", "attempt", id, "outcome", outcome, "err", err)
	}
}

func (r *Recorder) recordFailedOpen(ctx context.Context, st fund.LifecycleStatus) {
	a := attemptFrom(st)
	now := time.Now().UTC()
	a.StartedAt = now
	a.FinishedAt = &now
	a.Outcome = store.OutcomeError
	if st.Err != nil {
		a.Error = st.Err.Error()
	}
	if err := r.attempts.CreateAttempt(ctx, a); err != nil {
		r.logger.Error("record failed popup", "err", err)
	}
}

// Pending returns the number of attempts still waiting for an outcome.
func (r *Recorder) Pending() int { return len(r.open) }

func attemptFrom(st fund.LifecycleStatus) *store.Attempt {
	snap := st.Snapshot
	a := &store.Attempt{
		PopupID:      st.PopupID,
		Asset:        snap.Asset.Symbol,
		Currency:     snap.Currency,
		Country:      snap.Country,
		InputType:    string(snap.InputType),
		FiatAmount:   snap.FundAmountFiat,
		CryptoAmount: snap.FundAmountCrypto,
	}
	if snap.SelectedPaymentMethod != nil {
		a.PaymentMethod = snap.SelectedPaymentMethod.ID
	}
	return a
}
