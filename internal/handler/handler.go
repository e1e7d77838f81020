// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clubsuite/event-payments/internal/model"
	"github.com/clubsuite/event-payments/internal/model/domainerr"
	"github.com/clubsuite/event-payments/internal/service"
	"github.com/go-chi/chi/v5"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

// writeDomainError maps a domain error to its HTTP status and precise
// reason, so a caller can tell "full" from "already registered" from
// "payment blocks cancellation".
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domainerr.ErrEventNotFound),
		errors.Is(err, domainerr.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainerr.ErrEventFull),
		errors.Is(err, domainerr.ErrAlreadyRegistered),
		errors.Is(err, domainerr.ErrPaymentExists):
		status = http.StatusConflict
	case errors.Is(err, domainerr.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, domainerr.ErrValidation),
		errors.Is(err, domainerr.ErrInvalidOrderID),
		errors.Is(err, domainerr.ErrEventNotPublished),
		errors.Is(err, domainerr.ErrRegistrationClosed),
		errors.Is(err, domainerr.ErrCancelDeadlinePassed),
		errors.Is(err, domainerr.ErrPaymentApproved),
		errors.Is(err, domainerr.ErrNotRegistered),
		errors.Is(err, domainerr.ErrEventNotPayable):
		status = http.StatusBadRequest
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
		return
	}
	writeError(w, status, err.Error(), domainerr.Code(err))
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// callerID extracts the opaque caller identity set by the platform's
// auth layer in front of this service.
func callerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// EventHandler holds the HTTP handlers for events and registrations.
type EventHandler struct {
	svc *service.RegistrationService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.RegistrationService) *EventHandler {
	return &EventHandler{svc: svc}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "VALIDATION_FAILED")
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", "INTERNAL_ERROR")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// registerResponse is the union payload of POST /events/{id}/register:
// free events carry the registration, priced events the payment order.
type registerResponse struct {
	Registration *model.RegistrationResponse `json:"registration,omitempty"`
	Payment      *model.PaymentConfig        `json:"payment,omitempty"`
}

// Register handles POST /events/{id}/register
// Free events register immediately; priced events return the payment
// config the client needs to open the gateway checkout.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "caller identity is required", "UNAUTHORIZED")
		return
	}

	event, tx, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := registerResponse{}
	if tx != nil {
		resp.Payment = &model.PaymentConfig{
			OrderID:            tx.OrderID,
			Amount:             tx.Amount,
			Currency:           tx.Currency,
			Description:        tx.Description,
			IntegritySignature: tx.IntegritySignature,
			ExpiresAt:          tx.ExpiresAt,
		}
	} else {
		resp.Registration = &model.RegistrationResponse{
			EventID:             event.ID,
			CurrentParticipants: event.CurrentParticipants,
			MaxParticipants:     event.MaxParticipants,
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// CancelRegistration handles DELETE /events/{id}/register
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "caller identity is required", "UNAUTHORIZED")
		return
	}

	event, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.RegistrationResponse{
		EventID:             event.ID,
		CurrentParticipants: event.CurrentParticipants,
		MaxParticipants:     event.MaxParticipants,
	})
}

// ─── Payment handlers ─────────────────────────────────────────────────────────

// PaymentHandler holds the HTTP handlers for transaction status reads
// and the privileged reconciliation trigger.
type PaymentHandler struct {
	orders     *service.OrderService
	reconciler *service.ReconcileService
	cronToken  string
}

// NewPaymentHandler constructs a PaymentHandler. cronToken gates the
// reconciliation endpoints, which are meant for an external scheduler.
func NewPaymentHandler(orders *service.OrderService, reconciler *service.ReconcileService, cronToken string) *PaymentHandler {
	return &PaymentHandler{orders: orders, reconciler: reconciler, cronToken: cronToken}
}

// TransactionStatus handles GET /payments/{orderId}
func (h *PaymentHandler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "caller identity is required", "UNAUTHORIZED")
		return
	}

	t, err := h.orders.TransactionStatus(r.Context(), chi.URLParam(r, "orderId"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (h *PaymentHandler) authorized(r *http.Request) bool {
	return h.cronToken != "" && r.Header.Get("Authorization") == "Bearer "+h.cronToken
}

// Reconcile handles POST /payments/reconcile
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid reconciliation token", "UNAUTHORIZED")
		return
	}

	summary, err := h.reconciler.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reconciliation sweep failed", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ReconcilePending handles GET /payments/reconcile
// Reports how many transactions the next sweep would pick up.
func (h *PaymentHandler) ReconcilePending(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid reconciliation token", "UNAUTHORIZED")
		return
	}

	n, cutoff, err := h.reconciler.PendingCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count stale transactions", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expired_transactions_count": n,
		"cutoff":                     cutoff,
	})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
