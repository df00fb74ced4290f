package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/payment"
)

var (
	// ErrPendingNotFound is returned when a pending booking is unknown,
	// expired or was abandoned.
	ErrPendingNotFound = errors.New("pending booking not found or expired")
	// ErrBookingFinal is returned when an operation that only applies to
	// pending bookings targets a confirmed one.
	ErrBookingFinal = errors.New("booking is already confirmed")
)

// ValidationError reports missing or malformed request fields.  Fields maps
// each offending field to a message.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports that the requested slots overlap an existing
// booking.  Existing is nil when the overlap was detected by the store or
// by a concurrent booking holding the venue lock.
type ConflictError struct {
	Existing *model.Reservation
	Slots    []string
}

func (e *ConflictError) Error() string {
	if len(e.Slots) > 0 {
		return "slots already booked: " + strings.Join(e.Slots, ",")
	}
	return "slots already booked"
}

// ProviderError wraps a payment provider failure.  Status is set when the
// provider answered but the payment was not captured.
type ProviderError struct {
	Op     string
	Status payment.Status
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment %s: status %s", e.Op, e.Status)
	}
	return fmt.Sprintf("payment %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure.  Its message is not shown to
// clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
