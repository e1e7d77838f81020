// Package model defines the core domain types for the club's event
// registration and payment subsystem.
package model

import "time"

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// Event represents a club event users can register for.
// MaxParticipants == 0 means unbounded capacity; Price == 0 means the
// event is free and never produces a payment transaction.
type Event struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Status               EventStatus `json:"status"`
	Price                float64     `json:"price"`
	MaxParticipants      int         `json:"max_participants"`
	CurrentParticipants  int         `json:"current_participants"`
	StartDate            time.Time   `json:"start_date"`
	RegistrationDeadline time.Time   `json:"registration_deadline"`
	CreatedAt            time.Time   `json:"created_at"`
}

// IsFree returns true when registering requires no payment.
func (e *Event) IsFree() bool {
	return e.Price <= 0
}

// IsFull returns true when a bounded event has no seats left.
func (e *Event) IsFull() bool {
	return e.MaxParticipants > 0 && e.CurrentParticipants >= e.MaxParticipants
}

// Remaining returns the number of available seats, or -1 when unbounded.
func (e *Event) Remaining() int {
	if e.MaxParticipants == 0 {
		return -1
	}
	return e.MaxParticipants - e.CurrentParticipants
}

// TxStatus is the lifecycle state of a payment transaction. The value set
// mirrors the gateway's status vocabulary so reconciliation can adopt the
// gateway's answer verbatim.
type TxStatus string

const (
	StatusPending    TxStatus = "PENDING"
	StatusProcessing TxStatus = "PROCESSING"
	StatusApproved   TxStatus = "APPROVED"
	StatusRejected   TxStatus = "REJECTED"
	StatusFailed     TxStatus = "FAILED"
	StatusCancelled  TxStatus = "CANCELLED"
	StatusVoided     TxStatus = "VOIDED"
)

var txStatuses = map[TxStatus]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusApproved:   true,
	StatusRejected:   true,
	StatusFailed:     true,
	StatusCancelled:  true,
	StatusVoided:     true,
}

// Valid reports whether s is a known transaction status.
func (s TxStatus) Valid() bool {
	return txStatuses[s]
}

// Terminal reports whether s admits no further transitions.
func (s TxStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusFailed, StatusCancelled, StatusVoided:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition. Terminal states never transition; PENDING may enter
// PROCESSING or any terminal state; PROCESSING may only terminate.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	if s.Terminal() {
		return false
	}
	if s == StatusProcessing && next == StatusPending {
		return false
	}
	return true
}

// Transaction records one payment attempt for an event registration.
// OrderID is the external correlation key shared with the gateway.
// Amount, BaseAmount and TaxAmount are in integer minor currency units.
type Transaction struct {
	OrderID            string    `json:"order_id"`
	EventID            string    `json:"event_id"`
	UserID             string    `json:"user_id"`
	Amount             int64     `json:"amount"`
	BaseAmount         int64     `json:"base_amount"`
	TaxAmount          int64     `json:"tax_amount"`
	Currency           string    `json:"currency"`
	Status             TxStatus  `json:"status"`
	IntegritySignature string    `json:"integrity_signature"`
	Description        string    `json:"description"`
	ExpiresAt          time.Time `json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Price                float64   `json:"price"`
	MaxParticipants      int       `json:"max_participants"`
	StartDate            time.Time `json:"start_date"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
}

// RegistrationResponse summarises the state of an event after a
// registration or cancellation.
type RegistrationResponse struct {
	EventID             string `json:"event_id"`
	CurrentParticipants int    `json:"current_participants"`
	MaxParticipants     int    `json:"max_participants"`
}

// PaymentConfig is handed to the client so it can open the gateway
// checkout for a priced registration.
type PaymentConfig struct {
	OrderID            string    `json:"order_id"`
	Amount             int64     `json:"amount"`
	Currency           string    `json:"currency"`
	Description        string    `json:"description"`
	IntegritySignature string    `json:"integrity_signature"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// ReconcileSummary is the outcome of one reconciliation sweep.
type ReconcileSummary struct {
	Total     int       `json:"total"`
	Updated   int       `json:"updated"`
	Approved  int       `json:"approved"`
	Cancelled int       `json:"cancelled"`
	Errors    int       `json:"errors"`
	Cutoff    time.Time `json:"cutoff"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
