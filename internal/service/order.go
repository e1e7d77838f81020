package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/clubsuite/event-payments/internal/metrics"
	"github.com/clubsuite/event-payments/internal/model"
	"github.com/clubsuite/event-payments/internal/model/domainerr"
	"github.com/clubsuite/event-payments/internal/payment"
)

// OrderConfig holds the payment-order settings.
type OrderConfig struct {
	Secret         string
	Currency       string
	TaxRatePercent int
	OrderPrefix    string
}

// OrderConfigFromEnv reads order config from environment variables.
func OrderConfigFromEnv() OrderConfig {
	secret := os.Getenv("GATEWAY_SECRET_KEY")
	return OrderConfig{
		Secret:         secret,
		Currency:       payment.DefaultCurrency,
		TaxRatePercent: payment.TaxRatePercent,
		OrderPrefix:    payment.OrderIDPrefix,
	}
}

// OrderService creates payment orders for priced events and serves
// transaction status reads.
type OrderService struct {
	events       EventStore
	transactions TransactionStore
	cache        Cache
	cfg          OrderConfig
	now          func() time.Time
}

// NewOrderService constructs an OrderService. cache may be nil, in which
// case status reads always hit the store.
func NewOrderService(events EventStore, transactions TransactionStore, cache Cache, cfg OrderConfig) *OrderService {
	return &OrderService{
		events:       events,
		transactions: transactions,
		cache:        cache,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateOrder validates the event's payment preconditions and persists a
// PENDING transaction for the user/event pair.
//
// The capacity check here does not reserve a seat: payment success is
// what later triggers registration. A retried request while a
// non-terminal transaction exists returns that transaction instead of
// minting a duplicate order.
func (s *OrderService) CreateOrder(ctx context.Context, eventID, userID string) (*model.Transaction, error) {
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("%w: event id and user id are required", domainerr.ErrValidation)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != model.EventPublished {
		return nil, domainerr.ErrEventNotFound
	}
	if event.IsFree() {
		return nil, domainerr.ErrEventNotPayable
	}

	approved, err := s.transactions.HasApproved(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("check approved payment: %w", err)
	}
	if approved {
		return nil, domainerr.ErrPaymentExists
	}

	if event.IsFull() {
		return nil, domainerr.ErrEventFull
	}

	existing, err := s.transactions.FindOpen(ctx, userID, eventID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainerr.ErrTransactionNotFound) {
		return nil, fmt.Errorf("find open transaction: %w", err)
	}

	now := s.now()
	orderID := payment.NewOrderID(s.cfg.OrderPrefix, now)
	amount := payment.MinorUnits(event.Price)
	if amount < payment.MinAmount {
		return nil, fmt.Errorf("%w: amount %d is below the gateway minimum of %d",
			domainerr.ErrValidation, amount, payment.MinAmount)
	}
	base, tax := payment.TaxBreakdown(amount, s.cfg.TaxRatePercent)

	description := "Registration for " + event.Name
	if len(description) > 100 {
		description = description[:100]
	}

	t := &model.Transaction{
		OrderID:            orderID,
		EventID:            eventID,
		UserID:             userID,
		Amount:             amount,
		BaseAmount:         base,
		TaxAmount:          tax,
		Currency:           s.cfg.Currency,
		Status:             model.StatusPending,
		IntegritySignature: payment.Signature(orderID, amount, s.cfg.Currency, s.cfg.Secret),
		Description:        description,
		ExpiresAt:          now.Add(payment.ExpirationHorizon),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create order %s: %w", orderID, err)
	}

	metrics.OrdersCreatedTotal.Inc()
	return t, nil
}

// TransactionStatus returns the local transaction for a polling client,
// serving from the cache when possible. Only the transaction's owner may
// read it.
func (s *OrderService) TransactionStatus(ctx context.Context, orderID, userID string) (*model.Transaction, error) {
	if !payment.ValidOrderID(orderID) {
		return nil, domainerr.ErrInvalidOrderID
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, txCacheKey(orderID)); err == nil {
			var t model.Transaction
			if err := json.Unmarshal([]byte(raw), &t); err == nil {
				if t.UserID != userID {
					return nil, domainerr.ErrNotOwner
				}
				return &t, nil
			}
		}
	}

	t, err := s.transactions.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, domainerr.ErrNotOwner
	}

	if s.cache != nil {
		if raw, err := json.Marshal(t); err == nil {
			// Best effort: a cache miss on the next poll is harmless.
			_ = s.cache.Set(ctx, txCacheKey(orderID), string(raw))
		}
	}
	return t, nil
}
