package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/clubsuite/event-payments/internal/model"
	"github.com/clubsuite/event-payments/internal/model/domainerr"
	"github.com/google/uuid"
)

// fakeEventStore mirrors the repository's registration semantics in
// memory: the capacity check and the increment are applied under one
// lock, like the conditional UPDATE inside the database transaction.
type fakeEventStore struct {
	mu           sync.Mutex
	events       map[string]*model.Event
	participants map[string]map[string]bool
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events:       make(map[string]*model.Event),
		participants: make(map[string]map[string]bool),
	}
}

func (f *fakeEventStore) add(e model.Event) *model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	f.events[e.ID] = &e
	f.participants[e.ID] = make(map[string]bool)
	return &e
}

func (f *fakeEventStore) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	return f.add(model.Event{
		Name:                 req.Name,
		Description:          req.Description,
		Status:               model.EventPublished,
		Price:                req.Price,
		MaxParticipants:      req.MaxParticipants,
		StartDate:            req.StartDate,
		RegistrationDeadline: req.RegistrationDeadline,
		CreatedAt:            time.Now().UTC(),
	}), nil
}

func (f *fakeEventStore) List(context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, domainerr.ErrEventNotFound
	}
	copy := *e
	return &copy, nil
}

func (f *fakeEventStore) Register(_ context.Context, eventID, userID string, now time.Time) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.events[eventID]
	if !ok {
		return nil, domainerr.ErrEventNotFound
	}
	if e.Status != model.EventPublished {
		return nil, domainerr.ErrEventNotPublished
	}
	if !now.Before(e.StartDate) || !now.Before(e.RegistrationDeadline) {
		return nil, domainerr.ErrRegistrationClosed
	}
	if f.participants[eventID][userID] {
		return nil, domainerr.ErrAlreadyRegistered
	}
	if e.MaxParticipants > 0 && e.CurrentParticipants >= e.MaxParticipants {
		return nil, domainerr.ErrEventFull
	}

	f.participants[eventID][userID] = true
	e.CurrentParticipants++
	copy := *e
	return &copy, nil
}

func (f *fakeEventStore) Unregister(_ context.Context, eventID, userID string, now time.Time) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.events[eventID]
	if !ok {
		return nil, domainerr.ErrEventNotFound
	}
	if !now.Before(e.StartDate.Add(-24 * time.Hour)) {
		return nil, domainerr.ErrCancelDeadlinePassed
	}
	if !f.participants[eventID][userID] {
		return nil, domainerr.ErrNotRegistered
	}

	delete(f.participants[eventID], userID)
	e.CurrentParticipants--
	copy := *e
	return &copy, nil
}

func (f *fakeEventStore) participantCount(eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.participants[eventID])
}

// fakeTxStore is an in-memory transaction store. Like the database's
// partial unique index, it refuses a second APPROVED row per user/event
// pair.
type fakeTxStore struct {
	mu  sync.Mutex
	txs map[string]*model.Transaction
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{txs: make(map[string]*model.Transaction)}
}

func (f *fakeTxStore) add(t model.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[t.OrderID] = &t
}

func (f *fakeTxStore) get(orderID string) model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.txs[orderID]
}

func (f *fakeTxStore) Create(_ context.Context, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.txs[t.OrderID]; exists {
		return domainerr.ErrValidation
	}
	copy := *t
	f.txs[t.OrderID] = &copy
	return nil
}

func (f *fakeTxStore) GetByOrderID(_ context.Context, orderID string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[orderID]
	if !ok {
		return nil, domainerr.ErrTransactionNotFound
	}
	copy := *t
	return &copy, nil
}

func (f *fakeTxStore) FindOpen(_ context.Context, userID, eventID string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *model.Transaction
	for _, t := range f.txs {
		if t.UserID != userID || t.EventID != eventID || t.Status.Terminal() {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, domainerr.ErrTransactionNotFound
	}
	copy := *newest
	return &copy, nil
}

func (f *fakeTxStore) HasApproved(_ context.Context, userID, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.txs {
		if t.UserID == userID && t.EventID == eventID && t.Status == model.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxStore) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, t := range f.txs {
		if (t.Status == model.StatusPending || t.Status == model.StatusProcessing) && t.CreatedAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTxStore) CountExpired(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := f.ListExpired(ctx, cutoff, len(f.txs)+1)
	return len(all), err
}

func (f *fakeTxStore) UpdateStatus(_ context.Context, orderID string, next model.TxStatus, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[orderID]
	if !ok {
		return false, nil
	}
	if t.Status == next || t.Status.Terminal() {
		return false, nil
	}
	if next == model.StatusApproved {
		for _, other := range f.txs {
			if other.OrderID != orderID && other.UserID == t.UserID &&
				other.EventID == t.EventID && other.Status == model.StatusApproved {
				return false, domainerr.ErrPaymentExists
			}
		}
	}
	t.Status = next
	t.UpdatedAt = now
	return true, nil
}

var errGatewayDown = errors.New("gateway unreachable")

// fakeGateway answers status queries from a canned script.
type fakeGateway struct {
	mu       sync.Mutex
	statuses map[string]model.TxStatus
	errs     map[string]error
	calls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		statuses: make(map[string]model.TxStatus),
		errs:     make(map[string]error),
	}
}

func (f *fakeGateway) QueryStatus(_ context.Context, orderID string) (model.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[orderID]; ok {
		return "", err
	}
	if status, ok := f.statuses[orderID]; ok {
		return status, nil
	}
	return "", errGatewayDown
}

// fakeCache records operations so tests can assert invalidation.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	if !ok {
		return "", domainerr.ErrTransactionNotFound
	}
	return v, nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	f.deleted = append(f.deleted, key)
	return nil
}
