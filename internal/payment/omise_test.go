package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jampad-booking/internal/config"
)

type fakeGateway struct {
	sourceOp *operations.CreateSource
	chargeOp *operations.CreateCharge
	charge   *omise.Charge
	err      error
	delay    time.Duration
}

func (f *fakeGateway) CreateSource(op *operations.CreateSource) (*omise.Source, error) {
	f.sourceOp = op
	if f.err != nil {
		return nil, f.err
	}
	src := &omise.Source{}
	src.ID = "src_test_1"
	return src, nil
}

func (f *fakeGateway) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	f.chargeOp = op
	return f.charge, nil
}

func (f *fakeGateway) RetrieveCharge(op *operations.RetrieveCharge) (*omise.Charge, error) {
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	return f.charge, nil
}

func newCharge(id, status string, paid bool) *omise.Charge {
	ch := &omise.Charge{Status: omise.ChargeStatus(status), Paid: paid, Amount: 119800, Currency: "inr"}
	ch.ID = id
	ch.AuthorizeURI = "https://pay.example/authorize/" + id
	return ch
}

func TestNewOmiseProviderFromConfig(t *testing.T) {
	p, err := NewOmiseProvider(config.PaymentConfig{PublicKey: "pkey_test_5x0000", SecretKey: "skey_test_5x0000"})
	require.NoError(t, err)
	assert.Equal(t, "promptpay", p.sourceType)
	assert.Equal(t, 15*time.Second, p.timeout)
	_, ok := p.gw.(omiseGateway)
	assert.True(t, ok)
}

func TestCreateOrderBuildsSourceCharge(t *testing.T) {
	gw := &fakeGateway{charge: newCharge("chrg_1", "pending", false)}
	p := newOmiseProvider(gw, config.PaymentConfig{SourceType: "promptpay", TimeoutSec: 1})

	order, err := p.CreateOrder(context.Background(), OrderRequest{
		Amount: 119800, Currency: "inr", Capture: true, Note: "Pad1 2026-01-01", ReturnURL: "http://x/confirm",
	})
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", order.ID)
	assert.Equal(t, StatusCreated, order.Status)
	assert.Equal(t, "https://pay.example/authorize/chrg_1", order.RedirectURL)

	assert.Equal(t, "promptpay", gw.sourceOp.Type)
	assert.Equal(t, int64(119800), gw.sourceOp.Amount)
	assert.Equal(t, "src_test_1", gw.chargeOp.Source)
	assert.False(t, gw.chargeOp.DontCapture)
	assert.Equal(t, "http://x/confirm", gw.chargeOp.ReturnURI)
	assert.Equal(t, "Pad1 2026-01-01", gw.chargeOp.Metadata["note"])
}

func TestCreateOrderRejectsInvalidAmount(t *testing.T) {
	p := newOmiseProvider(&fakeGateway{}, config.PaymentConfig{})
	_, err := p.CreateOrder(context.Background(), OrderRequest{Amount: 0, Currency: "inr"})
	assert.Error(t, err)
}

func TestCreateOrderWrapsGatewayError(t *testing.T) {
	boom := errors.New("network down")
	p := newOmiseProvider(&fakeGateway{err: boom}, config.PaymentConfig{})
	_, err := p.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "inr"})
	assert.ErrorIs(t, err, boom)
}

func TestFetchPaymentMapsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		paid   bool
		want   Status
	}{
		{"captured", "successful", true, StatusCaptured},
		{"authorized only", "successful", false, StatusAuthorized},
		{"pending", "pending", false, StatusCreated},
		{"failed", "failed", false, StatusFailed},
		{"expired", "expired", false, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOmiseProvider(&fakeGateway{charge: newCharge("chrg_2", tt.status, tt.paid)}, config.PaymentConfig{})
			pay, err := p.FetchPayment(context.Background(), "chrg_2")
			require.NoError(t, err)
			assert.Equal(t, tt.want, pay.Status)
			assert.Equal(t, int64(119800), pay.Amount)
		})
	}
}

func TestFetchPaymentHonoursContext(t *testing.T) {
	p := newOmiseProvider(&fakeGateway{delay: 200 * time.Millisecond, charge: newCharge("c", "successful", true)}, config.PaymentConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.FetchPayment(ctx, "c")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDisabledProvider(t *testing.T) {
	var p Provider = Disabled{}
	_, err := p.CreateOrder(context.Background(), OrderRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
