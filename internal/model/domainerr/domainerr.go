// Package domainerr declares the sentinel errors of the registration and
// payment domain, with stable client-facing codes.
package domainerr

import "errors"

var (
	ErrValidation = errors.New("validation failed")

	ErrEventNotFound        = errors.New("event not found")
	ErrEventNotPublished    = errors.New("event is not open for registration")
	ErrRegistrationClosed   = errors.New("registration deadline has passed")
	ErrEventFull            = errors.New("no seats available for this event")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrNotRegistered        = errors.New("not registered for this event")
	ErrCancelDeadlinePassed = errors.New("registrations cannot be cancelled within 24 hours of the event start")
	ErrPaymentApproved      = errors.New("an approved payment blocks cancellation, contact support for a refund")

	ErrEventNotPayable     = errors.New("event is free and requires no payment")
	ErrPaymentExists       = errors.New("an approved payment already exists for this event")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidOrderID      = errors.New("order id is malformed")
	ErrNotOwner            = errors.New("transaction belongs to another user")
)

// Codes maps domain errors to the codes returned in error payloads.
var Codes = map[error]string{
	ErrValidation: "VALIDATION_FAILED",

	ErrEventNotFound:        "EVENT_NOT_FOUND",
	ErrEventNotPublished:    "EVENT_NOT_PUBLISHED",
	ErrRegistrationClosed:   "REGISTRATION_CLOSED",
	ErrEventFull:            "EVENT_FULL",
	ErrAlreadyRegistered:    "ALREADY_REGISTERED",
	ErrNotRegistered:        "NOT_REGISTERED",
	ErrCancelDeadlinePassed: "CANCELLATION_DEADLINE_PASSED",
	ErrPaymentApproved:      "PAYMENT_APPROVED",

	ErrEventNotPayable:     "EVENT_IS_FREE",
	ErrPaymentExists:       "PAYMENT_ALREADY_EXISTS",
	ErrTransactionNotFound: "TRANSACTION_NOT_FOUND",
	ErrInvalidOrderID:      "INVALID_ORDER_ID",
	ErrNotOwner:            "FORBIDDEN",
}

// Code returns the client-facing code for err, unwrapping as needed.
func Code(err error) string {
	for e, code := range Codes {
		if errors.Is(err, e) {
			return code
		}
	}
	return "INTERNAL_ERROR"
}
