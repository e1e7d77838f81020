// Package repository implements all database queries for events and
// payment transactions. It uses pgx directly (no ORM) for transparency
// and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clubsuite/event-payments/internal/model"
	"github.com/clubsuite/event-payments/internal/model/domainerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// terminalStatuses is inlined into queries that must never touch or
// overwrite settled transactions.
const terminalStatuses = `('APPROVED', 'REJECTED', 'FAILED', 'CANCELLED', 'VOIDED')`

// EventRepository handles persistence for events and their participant sets.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:                   uuid.New().String(),
		Name:                 req.Name,
		Description:          req.Description,
		Status:               model.EventPublished,
		Price:                req.Price,
		MaxParticipants:      req.MaxParticipants,
		CurrentParticipants:  0,
		StartDate:            req.StartDate,
		RegistrationDeadline: req.RegistrationDeadline,
		CreatedAt:            time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, description, status, price, max_participants,
		                     current_participants, start_date, registration_deadline, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.Name, event.Description, event.Status, event.Price,
		event.MaxParticipants, event.CurrentParticipants, event.StartDate,
		event.RegistrationDeadline, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by start date ascending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, status, price, max_participants,
		        current_participants, start_date, registration_deadline, created_at
		 FROM events
		 ORDER BY start_date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.Price,
			&e.MaxParticipants, &e.CurrentParticipants, &e.StartDate,
			&e.RegistrationDeadline, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or domainerr.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, status, price, max_participants,
		        current_participants, start_date, registration_deadline, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.Price,
		&e.MaxParticipants, &e.CurrentParticipants, &e.StartDate,
		&e.RegistrationDeadline, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// Register adds a user to an event's participant set, capacity permitting.
//
// Two interleaved read-then-write steps on the counter would admit
// overselling under concurrent requests, so the seat is taken with a
// single conditional UPDATE (increment only while below capacity) in the
// same transaction that inserts the participant row. The initial
// SELECT ... FOR UPDATE serialises writers on the event row, which also
// keeps current_participants equal to the participant row count when
// registrations and cancellations interleave.
func (r *EventRepository) Register(ctx context.Context, eventID, userID string, now time.Time) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	e := &model.Event{ID: eventID}
	err = tx.QueryRow(ctx,
		`SELECT name, status, price, max_participants, current_participants,
		        start_date, registration_deadline
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&e.Name, &e.Status, &e.Price, &e.MaxParticipants,
		&e.CurrentParticipants, &e.StartDate, &e.RegistrationDeadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if e.Status != model.EventPublished {
		err = domainerr.ErrEventNotPublished
		return nil, err
	}
	if !now.Before(e.StartDate) || !now.Before(e.RegistrationDeadline) {
		err = domainerr.ErrRegistrationClosed
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO event_participants (event_id, user_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id, user_id) DO NOTHING`,
		eventID, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = domainerr.ErrAlreadyRegistered
		return nil, err
	}

	// The capacity guard and the increment are one conditional write.
	tag, err = tx.Exec(ctx,
		`UPDATE events
		 SET current_participants = current_participants + 1
		 WHERE id = $1
		   AND (max_participants = 0 OR current_participants < max_participants)`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("increment participants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = domainerr.ErrEventFull
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	e.CurrentParticipants++
	return e, nil
}

// Unregister removes a user from an event's participant set and releases
// the seat. The cancellation deadline (24h before start) is enforced here
// so it shares the row lock with the counter update.
func (r *EventRepository) Unregister(ctx context.Context, eventID, userID string, now time.Time) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	e := &model.Event{ID: eventID}
	err = tx.QueryRow(ctx,
		`SELECT name, status, price, max_participants, current_participants,
		        start_date, registration_deadline
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&e.Name, &e.Status, &e.Price, &e.MaxParticipants,
		&e.CurrentParticipants, &e.StartDate, &e.RegistrationDeadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if !now.Before(e.StartDate.Add(-24 * time.Hour)) {
		err = domainerr.ErrCancelDeadlinePassed
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = domainerr.ErrNotRegistered
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET current_participants = current_participants - 1
		 WHERE id = $1 AND current_participants > 0`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement participants: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	e.CurrentParticipants--
	return e, nil
}

// TransactionRepository handles persistence for payment transactions.
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `order_id, event_id, user_id, amount, base_amount, tax_amount,
	currency, status, integrity_signature, description, expires_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.OrderID, &t.EventID, &t.UserID, &t.Amount, &t.BaseAmount,
		&t.TaxAmount, &t.Currency, &t.Status, &t.IntegritySignature,
		&t.Description, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new transaction keyed by its order id.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_transactions (`+txColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.OrderID, t.EventID, t.UserID, t.Amount, t.BaseAmount, t.TaxAmount,
		t.Currency, t.Status, t.IntegritySignature, t.Description,
		t.ExpiresAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByOrderID returns a transaction or domainerr.ErrTransactionNotFound.
func (r *TransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txColumns+` FROM payment_transactions WHERE order_id = $1`,
		orderID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// FindOpen returns the newest non-terminal transaction for a user/event
// pair, or domainerr.ErrTransactionNotFound. Order creation reuses this
// row instead of minting a duplicate.
func (r *TransactionRepository) FindOpen(ctx context.Context, userID, eventID string) (*model.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txColumns+`
		 FROM payment_transactions
		 WHERE user_id = $1 AND event_id = $2 AND status NOT IN `+terminalStatuses+`
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find open transaction: %w", err)
	}
	return t, nil
}

// HasApproved reports whether an APPROVED transaction exists for the pair.
func (r *TransactionRepository) HasApproved(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM payment_transactions
		   WHERE user_id = $1 AND event_id = $2 AND status = 'APPROVED'
		 )`,
		userID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check approved payment: %w", err)
	}
	return exists, nil
}

// ListExpired returns up to limit stale non-terminal transactions created
// before cutoff, oldest first. Re-running the sweep only ever sees rows
// still matching this predicate.
func (r *TransactionRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+txColumns+`
		 FROM payment_transactions
		 WHERE status IN ('PENDING', 'PROCESSING') AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// CountExpired returns how many transactions currently match the sweep's
// selection predicate.
func (r *TransactionRepository) CountExpired(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM payment_transactions
		 WHERE status IN ('PENDING', 'PROCESSING') AND created_at < $1`,
		cutoff,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired transactions: %w", err)
	}
	return n, nil
}

// UpdateStatus moves a transaction to next and refreshes updated_at.
// It reports whether a row actually changed. Terminal rows are never
// overwritten, and writing the current status is a no-op, so repeated
// sweeps cannot double-apply effects.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, orderID string, next model.TxStatus, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE payment_transactions
		 SET status = $2, updated_at = $3
		 WHERE order_id = $1
		   AND status <> $2
		   AND status NOT IN `+terminalStatuses,
		orderID, next, now,
	)
	if err != nil {
		return false, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
