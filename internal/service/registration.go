package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clubsuite/event-payments/internal/metrics"
	"github.com/clubsuite/event-payments/internal/model"
	"github.com/clubsuite/event-payments/internal/model/domainerr"
)

// RegistrationService orchestrates event CRUD, registration and
// cancellation. Priced events are routed through the order service: the
// seat is only taken once the payment settles, so registering for one
// returns a payment order rather than a participant slot.
type RegistrationService struct {
	events       EventStore
	transactions TransactionStore
	orders       *OrderService
	now          func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(events EventStore, transactions TransactionStore, orders *OrderService) *RegistrationService {
	return &RegistrationService{
		events:       events,
		transactions: transactions,
		orders:       orders,
		now:          time.Now,
	}
}

// CreateEvent validates the request and delegates to the store.
func (s *RegistrationService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", domainerr.ErrValidation)
	}
	if req.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: max participants cannot be negative", domainerr.ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", domainerr.ErrValidation)
	}
	if !req.StartDate.After(s.now()) {
		return nil, fmt.Errorf("%w: start date must be in the future", domainerr.ErrValidation)
	}
	if req.RegistrationDeadline.IsZero() {
		req.RegistrationDeadline = req.StartDate
	}
	if req.RegistrationDeadline.After(req.StartDate) {
		return nil, fmt.Errorf("%w: registration deadline cannot be after the start date", domainerr.ErrValidation)
	}
	return s.events.Create(ctx, req)
}

// ListEvents returns all events.
func (s *RegistrationService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *RegistrationService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: event id is required", domainerr.ErrValidation)
	}
	return s.events.GetByID(ctx, id)
}

// Register signs a user up for an event. Free events take the seat
// immediately; priced events return a payment order and no seat.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID string) (*model.Event, *model.Transaction, error) {
	if eventID == "" || userID == "" {
		return nil, nil, fmt.Errorf("%w: event id and user id are required", domainerr.ErrValidation)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}

	if !event.IsFree() {
		t, err := s.orders.CreateOrder(ctx, eventID, userID)
		if err != nil {
			return nil, nil, err
		}
		return nil, t, nil
	}

	updated, err := s.events.Register(ctx, eventID, userID, s.now())
	if err != nil {
		return nil, nil, err
	}
	metrics.RegistrationsTotal.Inc()
	return updated, nil, nil
}

// Cancel removes a user's registration. A financially settled
// registration cannot be reversed here: the approved-payment guard sends
// the caller to the manual refund process instead.
func (s *RegistrationService) Cancel(ctx context.Context, eventID, userID string) (*model.Event, error) {
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("%w: event id and user id are required", domainerr.ErrValidation)
	}

	approved, err := s.transactions.HasApproved(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("check approved payment: %w", err)
	}
	if approved {
		return nil, domainerr.ErrPaymentApproved
	}

	updated, err := s.events.Unregister(ctx, eventID, userID, s.now())
	if err != nil {
		return nil, err
	}
	metrics.CancellationsTotal.Inc()
	return updated, nil
}
