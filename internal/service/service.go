// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository, gateway and cache layers.
package service

import (
	"context"
	"time"

	"github.com/clubsuite/event-payments/internal/model"
)

// EventStore is the event persistence contract.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Register(ctx context.Context, eventID, userID string, now time.Time) (*model.Event, error)
	Unregister(ctx context.Context, eventID, userID string, now time.Time) (*model.Event, error)
}

// TransactionStore is the payment transaction persistence contract.
type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) error
	GetByOrderID(ctx context.Context, orderID string) (*model.Transaction, error)
	FindOpen(ctx context.Context, userID, eventID string) (*model.Transaction, error)
	HasApproved(ctx context.Context, userID, eventID string) (bool, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error)
	CountExpired(ctx context.Context, cutoff time.Time) (int, error)
	UpdateStatus(ctx context.Context, orderID string, next model.TxStatus, now time.Time) (bool, error)
}

// StatusGateway queries the external payment authority.
type StatusGateway interface {
	QueryStatus(ctx context.Context, orderID string) (model.TxStatus, error)
}

// Cache is the transaction status cache contract.
type Cache interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

func txCacheKey(orderID string) string {
	return "tx:" + orderID
}
