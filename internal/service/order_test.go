package service

import (
	"context"
	"testing"
	"time"

	"github.com/clubsuite/event-payments/internal/model"
	"github.com/clubsuite/event-payments/internal/model/domainerr"
	"github.com/clubsuite/event-payments/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrderConfig = OrderConfig{
	Secret:         "test-secret",
	Currency:       payment.DefaultCurrency,
	TaxRatePercent: payment.TaxRatePercent,
	OrderPrefix:    payment.OrderIDPrefix,
}

func pricedEvent(price float64, max int) model.Event {
	return model.Event{
		Name:                 "Annual Ride",
		Status:               model.EventPublished,
		Price:                price,
		MaxParticipants:      max,
		StartDate:            time.Now().Add(72 * time.Hour),
		RegistrationDeadline: time.Now().Add(48 * time.Hour),
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	events := newFakeEventStore()
	txs := newFakeTxStore()
	event := events.add(pricedEvent(50000, 10))

	svc := NewOrderService(events, txs, nil, testOrderConfig)

	tx, err := svc.CreateOrder(ctx, event.ID, "user-1")
	require.NoError(t, err)

	assert.True(t, payment.ValidOrderID(tx.OrderID))
	assert.Equal(t, model.StatusPending, tx.Status)
	assert.Equal(t, int64(50000), tx.Amount)
	assert.Equal(t, int64(42017), tx.BaseAmount)
	assert.Equal(t, int64(7983), tx.TaxAmount)
	assert.Equal(t, "COP", tx.Currency)
	assert.Equal(t,
		payment.Signature(tx.OrderID, 50000, "COP", "test-secret"),
		tx.IntegritySignature)
	assert.Equal(t, tx.CreatedAt.Add(24*time.Hour), tx.ExpiresAt)
}

func TestCreateOrderPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("event not found", func(t *testing.T) {
		svc := NewOrderService(newFakeEventStore(), newFakeTxStore(), nil, testOrderConfig)
		_, err := svc.CreateOrder(ctx, "missing", "user-1")
		assert.ErrorIs(t, err, domainerr.ErrEventNotFound)
	})

	t.Run("draft event behaves as missing", func(t *testing.T) {
		events := newFakeEventStore()
		e := pricedEvent(50000, 10)
		e.Status = model.EventDraft
		event := events.add(e)

		svc := NewOrderService(events, newFakeTxStore(), nil, testOrderConfig)
		_, err := svc.CreateOrder(ctx, event.ID, "user-1")
		assert.ErrorIs(t, err, domainerr.ErrEventNotFound)
	})

	t.Run("free event is not payable", func(t *testing.T) {
		events := newFakeEventStore()
		event := events.add(pricedEvent(0, 10))

		svc := NewOrderService(events, newFakeTxStore(), nil, testOrderConfig)
		_, err := svc.CreateOrder(ctx, event.ID, "user-1")
		assert.ErrorIs(t, err, domainerr.ErrEventNotPayable)
	})

	t.Run("already paid", func(t *testing.T) {
		events := newFakeEventStore()
		event := events.add(pricedEvent(50000, 10))
		txs := newFakeTxStore()
		txs.add(model.Transaction{
			OrderID: "EVT-1-PAID01", EventID: event.ID, UserID: "user-1",
			Status: model.StatusApproved, CreatedAt: time.Now(),
		})

		svc := NewOrderService(events, txs, nil, testOrderConfig)
		_, err := svc.CreateOrder(ctx, event.ID, "user-1")
		assert.ErrorIs(t, err, domainerr.ErrPaymentExists)
	})

	t.Run("event full", func(t *testing.T) {
		events := newFakeEventStore()
		e := pricedEvent(50000, 2)
		e.CurrentParticipants = 2
		event := events.add(e)

		svc := NewOrderService(events, newFakeTxStore(), nil, testOrderConfig)
		_, err := svc.CreateOrder(ctx, event.ID, "user-1")
		assert.ErrorIs(t, err, domainerr.ErrEventFull)
	})

	t.Run("amount below gateway minimum", func(t *testing.T) {
		events := newFakeEventStore()
		event := events.add(pricedEvent(500, 10))

		svc := NewOrderService(events, newFakeTxStore(), nil, testOrderConfig)
		_, err := svc.CreateOrder(ctx, event.ID, "user-1")
		assert.ErrorIs(t, err, domainerr.ErrValidation)
	})
}

func TestCreateOrderIdempotent(t *testing.T) {
	ctx := context.Background()
	events := newFakeEventStore()
	event := events.add(pricedEvent(50000, 10))
	txs := newFakeTxStore()

	svc := NewOrderService(events, txs, nil, testOrderConfig)

	first, err := svc.CreateOrder(ctx, event.ID, "user-1")
	require.NoError(t, err)

	// A retried request must reuse the open order, not mint a second one.
	second, err := svc.CreateOrder(ctx, event.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, txs.txs, 1)

	// Once the open order terminates, a fresh one may be created.
	_, err = txs.UpdateStatus(ctx, first.OrderID, model.StatusCancelled, time.Now())
	require.NoError(t, err)

	third, err := svc.CreateOrder(ctx, event.ID, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, third.OrderID)

	// A different user gets their own order.
	other, err := svc.CreateOrder(ctx, event.ID, "user-2")
	require.NoError(t, err)
	assert.NotEqual(t, third.OrderID, other.OrderID)
}

func TestTransactionStatus(t *testing.T) {
	ctx := context.Background()
	events := newFakeEventStore()
	event := events.add(pricedEvent(50000, 10))
	txs := newFakeTxStore()
	cache := newFakeCache()

	svc := NewOrderService(events, txs, cache, testOrderConfig)

	created, err := svc.CreateOrder(ctx, event.ID, "user-1")
	require.NoError(t, err)

	t.Run("owner reads through cache", func(t *testing.T) {
		got, err := svc.TransactionStatus(ctx, created.OrderID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, created.OrderID, got.OrderID)
		assert.Contains(t, cache.entries, "tx:"+created.OrderID)

		// Second read is served from the cache.
		again, err := svc.TransactionStatus(ctx, created.OrderID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, got.Status, again.Status)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		_, err := svc.TransactionStatus(ctx, created.OrderID, "user-2")
		assert.ErrorIs(t, err, domainerr.ErrNotOwner)
	})

	t.Run("malformed order id", func(t *testing.T) {
		_, err := svc.TransactionStatus(ctx, "not valid;", "user-1")
		assert.ErrorIs(t, err, domainerr.ErrInvalidOrderID)
	})

	t.Run("unknown order id", func(t *testing.T) {
		_, err := svc.TransactionStatus(ctx, "EVT-1-GHOST1", "user-1")
		assert.ErrorIs(t, err, domainerr.ErrTransactionNotFound)
	})
}
