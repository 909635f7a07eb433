package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrAttemptFinished = errors.New("attempt already finished")
)

// timeFormat is fixed width so stored times sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeExit    Outcome = "exit"
)

// Attempt is one checkout popup opened for a funding session. The session
// token is never stored.
type Attempt struct {
	ID            string     `json:"id"`
	PopupID       string     `json:"popup_id,omitempty"`
	Asset         string     `json:"asset"`
	Currency      string     `json:"currency"`
	Country       string     `json:"country,omitempty"`
	InputType     string     `json:"input_type"`
	FiatAmount    string     `json:"fiat_amount"`
	CryptoAmount  string     `json:"crypto_amount"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Outcome       Outcome    `json:"outcome"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

func (a *Attempt) Finished() bool { return a.FinishedAt != nil }

// CreateAttempt inserts a pending attempt, assigning an id and start time
// when unset.
func (s *Store) CreateAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.Must(uuid.NewV7()).String()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	if a.Outcome == "" {
		a.Outcome = OutcomePending
	}

	var finished any
	if a.FinishedAt != nil {
		finished = a.FinishedAt.UTC().Format(timeFormat)
	}
	_, err := s.writer.ExecContext(ctx,
		`INSERT INTO attempts (id, popup_id, asset, currency, country, input_type, fiat_amount, crypto_amount, payment_method, outcome, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PopupID, a.Asset, a.Currency, a.Country, a.InputType, a.FiatAmount, a.CryptoAmount,
		a.PaymentMethod, string(a.Outcome), a.Error, a.StartedAt.UTC().Format(timeFormat), finished,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// FinishAttempt records the outcome of a pending attempt.
func (s *Store) FinishAttempt(ctx context.Context, id string, outcome Outcome, reason string) error {
	if outcome == OutcomePending {
		return fmt.Errorf("finish attempt %s: outcome must be final", id)
	}
	res, err := s.writer.ExecContext(ctx,
		`UPDATE attempts SET outcome = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(outcome), reason, time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "attempt already finished") {
			return ErrAttemptFinished
		}
		return fmt.Errorf("finish attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	if n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (*Attempt, error) {
	row := s.reader.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns attempts newest first.
func (s *Store) ListAttempts(ctx context.Context, f AttemptFilter) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts`
	var args []any
	if f.Asset != "" {
		query += ` WHERE asset = ?`
		args = append(args, strings.ToUpper(f.Asset))
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

const attemptColumns = `id, popup_id, asset, currency, country, input_type, fiat_amount, crypto_amount, payment_method, outcome, error, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(sc scanner) (*Attempt, error) {
	var a Attempt
	var outcome, startedAt string
	var finishedAt sql.NullString
	err := sc.Scan(&a.ID, &a.PopupID, &a.Asset, &a.Currency, &a.Country, &a.InputType,
		&a.FiatAmount, &a.CryptoAmount, &a.PaymentMethod, &outcome, &a.Error, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	a.Outcome = Outcome(outcome)
	a.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, finishedAt.String)
		a.FinishedAt = &t
	}
	return &a, nil
}
