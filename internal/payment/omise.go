package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/jampad-booking/internal/config"
)

// gateway is the set of Omise calls the provider makes.
type gateway interface {
	CreateSource(op *operations.CreateSource) (*omise.Source, error)
	CreateCharge(op *operations.CreateCharge) (*omise.Charge, error)
	RetrieveCharge(op *operations.RetrieveCharge) (*omise.Charge, error)
}

type omiseGateway struct{ c *omise.Client }

func (g omiseGateway) CreateSource(op *operations.CreateSource) (*omise.Source, error) {
	src := &omise.Source{}
	return src, g.c.Do(src, op)
}

func (g omiseGateway) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	return ch, g.c.Do(ch, op)
}

func (g omiseGateway) RetrieveCharge(op *operations.RetrieveCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	return ch, g.c.Do(ch, op)
}

// OmiseProvider implements Provider on top of Omise charges.  Orders are
// source based charges (PromptPay by default); FetchPayment always
// re-reads the charge from the gateway so callbacks are never trusted as-is.
type OmiseProvider struct {
	gw         gateway
	sourceType string
	timeout    time.Duration
}

// NewOmiseProvider builds a provider from the payment configuration.
func NewOmiseProvider(cfg config.PaymentConfig) (*OmiseProvider, error) {
	c, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	return newOmiseProvider(omiseGateway{c: c}, cfg), nil
}

func newOmiseProvider(gw gateway, cfg config.PaymentConfig) *OmiseProvider {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	st := cfg.SourceType
	if st == "" {
		st = "promptpay"
	}
	return &OmiseProvider{gw: gw, sourceType: st, timeout: timeout}
}

// CreateOrder creates a payment source and a charge against it.
func (p *OmiseProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 || req.Currency == "" {
		return nil, errors.New("invalid order: amount and currency are required")
	}
	var src *omise.Source
	err := p.do(ctx, func() (err error) {
		src, err = p.gw.CreateSource(&operations.CreateSource{
			Type:     p.sourceType,
			Amount:   req.Amount,
			Currency: req.Currency,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	meta := map[string]any{"note": req.Note}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	var ch *omise.Charge
	err = p.do(ctx, func() (err error) {
		ch, err = p.gw.CreateCharge(&operations.CreateCharge{
			Amount:      req.Amount,
			Currency:    req.Currency,
			Source:      src.ID,
			Description: req.Note,
			ReturnURI:   req.ReturnURL,
			DontCapture: !req.Capture,
			Metadata:    meta,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	log.Debug().Str("charge_id", ch.ID).Str("status", string(ch.Status)).Msg("omise charge created")
	return &Order{ID: ch.ID, RedirectURL: ch.AuthorizeURI, Status: chargeStatus(ch)}, nil
}

// FetchPayment retrieves the charge with the given id.
func (p *OmiseProvider) FetchPayment(ctx context.Context, id string) (*Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("payment id is required")
	}
	var ch *omise.Charge
	err := p.do(ctx, func() (err error) {
		ch, err = p.gw.RetrieveCharge(&operations.RetrieveCharge{ChargeID: id})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve charge: %w", err)
	}
	pay := &Payment{ID: ch.ID, Status: chargeStatus(ch), Amount: ch.Amount, Currency: ch.Currency}
	if ch.FailureMessage != nil {
		pay.FailureMessage = *ch.FailureMessage
	}
	return pay, nil
}

// do runs a gateway operation bounded by ctx and the provider timeout.  The
// omise client has no context support, so the call runs in a goroutine and
// is abandoned on cancellation.
func (p *OmiseProvider) do(ctx context.Context, call func() error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func chargeStatus(ch *omise.Charge) Status {
	switch string(ch.Status) {
	case "successful":
		if ch.Paid {
			return StatusCaptured
		}
		return StatusAuthorized
	case "failed", "expired", "reversed":
		return StatusFailed
	}
	if ch.Authorized {
		return StatusAuthorized
	}
	return StatusCreated
}
