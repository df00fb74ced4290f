// Package payment defines the payment gateway collaborator used by the
// booking flow together with its Omise implementation.
package payment

import (
	"context"
	"errors"
)

// Status is the lifecycle state of a payment as reported by the gateway.
type Status string

const (
	StatusCreated    Status = "created"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// ErrUnavailable is returned by the disabled provider used when no gateway
// credentials are configured.
var ErrUnavailable = errors.New("payment gateway not configured")

// OrderRequest describes a payment order.  Amount is in minor currency
// units.  Note identifies the booking on the gateway side.
type OrderRequest struct {
	Amount    int64
	Currency  string
	Capture   bool
	Note      string
	ReturnURL string
	Metadata  map[string]any
}

// Order is the gateway's answer to an order creation.  RedirectURL is where
// the payer completes the payment, when the payment method needs one.
type Order struct {
	ID          string
	RedirectURL string
	Status      Status
}

// Payment is the verified state of a payment fetched from the gateway.
type Payment struct {
	ID             string
	Status         Status
	Amount         int64
	Currency       string
	FailureMessage string
}

// Provider creates payment orders and fetches their state.  Only
// StatusCaptured is treated as success by callers.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchPayment(ctx context.Context, id string) (*Payment, error)
}

// Disabled is a Provider that rejects every call with ErrUnavailable.
type Disabled struct{}

func (Disabled) CreateOrder(context.Context, OrderRequest) (*Order, error) {
	return nil, ErrUnavailable
}

func (Disabled) FetchPayment(context.Context, string) (*Payment, error) {
	return nil, ErrUnavailable
}
