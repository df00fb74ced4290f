package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/jampad-booking/internal/config"
	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/queue"
	"github.com/iliyamo/jampad-booking/internal/repository"
	"github.com/iliyamo/jampad-booking/internal/utils"
)

// ReservationStore is the persistence contract of the booking flow.
type ReservationStore interface {
	ConflictFinder
	Insert(ctx context.Context, r *model.Reservation) (uint64, error)
	GetByToken(ctx context.Context, token string) (*model.Reservation, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*model.Reservation, error)
	AttachPayment(ctx context.Context, id uint64, paymentID string) error
	Promote(ctx context.Context, id uint64, paymentID string) error
	DeleteByToken(ctx context.Context, token string) (bool, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	BookedSlots(ctx context.Context, venue, date string) ([]string, error)
}

// Locker serialises bookings for one venue and date.  Acquire returns
// repository.ErrLockBusy when another booking holds the lock.
type Locker interface {
	Acquire(ctx context.Context, venue, date string) (release func(), err error)
}

// Notifier delivers a message and never fails from the caller's view.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string)
}

// EventPublisher publishes booking events.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// BookingRequest is a booking form submission.  Date is DD-MM-YYYY and
// Slots a comma separated label list.
type BookingRequest struct {
	Venue    string `json:"jampad"`
	BandName string `json:"bandName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	People   string `json:"people"`
	Mics     string `json:"mics"`
	Slots    string `json:"timeSlots"`
	Date     string `json:"bookingDate"`
}

// PendingBooking is the outcome of a successful submission: a pending
// reservation awaiting payment.
type PendingBooking struct {
	Token       string             `json:"token"`
	Reservation *model.Reservation `json:"reservation"`
	OrderID     string             `json:"order_id"`
	RedirectURL string             `json:"redirect_url,omitempty"`
	ExpiresAt   time.Time          `json:"expires_at"`
	AmountMinor int64              `json:"amount_minor"`
	Currency    string             `json:"currency"`
}

// BookingService runs the reservation lifecycle:
//
//	Submitted → Validated → ConflictChecked → Rejected | PendingPayment
//	PendingPayment → Confirmed | Abandoned
//	Validated → AdminConfirmed
//
// Pending reservations live in the store with a hold token and an expiry,
// so they take part in conflict checks until they lapse.  The check and the
// insert run under a per venue/date lock when one is configured; the
// store's unique slot constraint is the final guard either way.
type BookingService struct {
	store         ReservationStore
	provider      payment.Provider
	notifier      Notifier
	publisher     EventPublisher
	locker        Locker
	cfg           config.BookingConfig
	operatorEmail string
	baseURL       string

	now      func() time.Time
	newToken func() (string, error)
}

// NewBookingService wires the service.  notifier, publisher and locker may
// be nil.
func NewBookingService(cfg config.Config, store ReservationStore, provider payment.Provider, notifier Notifier, publisher EventPublisher, locker Locker) *BookingService {
	return &BookingService{
		store:         store,
		provider:      provider,
		notifier:      notifier,
		publisher:     publisher,
		locker:        locker,
		cfg:           cfg.Booking,
		operatorEmail: cfg.OperatorEmail,
		baseURL:       strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:           func() time.Time { return time.Now().UTC() },
		newToken:      utils.NewHoldToken,
	}
}

// Column widths of the reservations and reservation_slots tables.  Values
// are measured in characters, as MySQL VARCHAR is.
const (
	maxVenueLen = 100
	maxBandLen  = 200
	maxEmailLen = 255
	maxPhoneLen = 50
	maxCountLen = 20
	maxSlotsLen = 500
	maxLabelLen = 50
)

// validated is a request that passed field validation.
type validated struct {
	res   model.Reservation
	slots SlotSet
}

func (s *BookingService) validate(req BookingRequest) (*validated, error) {
	verr := &ValidationError{}
	required := []struct{ field, value string }{
		{"jampad", req.Venue},
		{"bandName", req.BandName},
		{"email", req.Email},
		{"phone", req.Phone},
		{"people", req.People},
		{"mics", req.Mics},
		{"timeSlots", req.Slots},
		{"bookingDate", req.Date},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			verr.add(f.field, "is required")
		}
	}
	venue := strings.TrimSpace(req.Venue)
	if venue != "" {
		canonical, ok := s.cfg.CanonicalVenue(venue)
		if !ok {
			verr.add("jampad", "unknown venue")
		}
		venue = canonical
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			verr.add("email", "is not a valid address")
		}
	}
	var date string
	if strings.TrimSpace(req.Date) != "" {
		d, err := NormalizeDate("bookingDate", req.Date)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				for k, v := range ve.Fields {
					verr.add(k, v)
				}
			}
		}
		date = d
	}
	slots := ParseSlots(req.Slots)
	if strings.TrimSpace(req.Slots) != "" && slots.Empty() {
		verr.add("timeSlots", "no slot labels given")
	}
	for _, f := range []struct {
		field, value string
		max          int
	}{
		{"jampad", venue, maxVenueLen},
		{"bandName", strings.TrimSpace(req.BandName), maxBandLen},
		{"email", email, maxEmailLen},
		{"phone", strings.TrimSpace(req.Phone), maxPhoneLen},
		{"people", strings.TrimSpace(req.People), maxCountLen},
		{"mics", strings.TrimSpace(req.Mics), maxCountLen},
		{"timeSlots", slots.String(), maxSlotsLen},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			verr.add(f.field, fmt.Sprintf("must be at most %d characters", f.max))
		}
	}
	for _, l := range slots.Labels() {
		if utf8.RuneCountInString(l) > maxLabelLen {
			verr.add("timeSlots", fmt.Sprintf("slot labels must be at most %d characters", maxLabelLen))
			break
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return &validated{
		res: model.Reservation{
			VenueName:       venue,
			BandName:        strings.TrimSpace(req.BandName),
			ContactEmail:    email,
			ContactPhone:    strings.TrimSpace(req.Phone),
			PeopleCount:     strings.TrimSpace(req.People),
			MicrophoneCount: strings.TrimSpace(req.Mics),
			Date:            date,
			Slots:           slots.String(),
		},
		slots: slots,
	}, nil
}

// reserve runs the conflict check and inserts r under the venue/date lock.
func (s *BookingService) reserve(ctx context.Context, r *model.Reservation, slots SlotSet) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, r.VenueName, r.Date)
		switch {
		case errors.Is(err, repository.ErrLockBusy):
			return &ConflictError{Slots: slots.Labels()}
		case err != nil:
			log.Warn().Err(err).Str("venue", r.VenueName).Str("date", r.Date).Msg("booking lock unavailable; relying on store constraint")
		default:
			defer release()
		}
	}

	if n, err := s.store.ExpirePending(ctx, s.now()); err != nil {
		log.Warn().Err(err).Msg("inline pending sweep failed")
	} else if n > 0 {
		log.Debug().Int64("expired", n).Msg("expired pending bookings removed")
	}

	conflict, existing, err := HasConflict(ctx, s.store, r.VenueName, r.Date, slots)
	if err != nil {
		return &PersistenceError{Op: "find bookings", Err: err}
	}
	if conflict {
		return &ConflictError{Existing: existing, Slots: ParseSlots(existing.Slots).Intersect(slots).Labels()}
	}

	id, err := s.store.Insert(ctx, r)
	if errors.Is(err, repository.ErrSlotTaken) {
		return &ConflictError{Slots: slots.Labels()}
	}
	if err != nil {
		return &PersistenceError{Op: "insert booking", Err: err}
	}
	r.ID = id
	return nil
}

// Submit validates req, holds the requested slots as a pending reservation
// and creates a payment order for it.  When order creation fails the
// pending reservation is removed and a ProviderError is returned; the
// caller must resubmit.
func (s *BookingService) Submit(ctx context.Context, req BookingRequest) (*PendingBooking, error) {
	v, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("hold token: %w", err)
	}
	now := s.now()
	exp := now.Add(s.cfg.PendingTTL)
	r := v.res
	r.PaymentStatus = model.PaymentPending
	r.HoldToken = token
	r.ExpiresAt = &exp
	r.AmountMinor = s.cfg.SlotPriceMinor * int64(v.slots.Len())
	r.CreatedAt = now

	if err := s.reserve(ctx, &r, v.slots); err != nil {
		return nil, err
	}

	order, err := s.provider.CreateOrder(ctx, payment.OrderRequest{
		Amount:    r.AmountMinor,
		Currency:  s.cfg.Currency,
		Capture:   true,
		Note:      fmt.Sprintf("Jam pad booking: %s on %s (%s)", r.VenueName, r.Date, r.Slots),
		ReturnURL: s.baseURL + "/v1/bookings/" + token + "/confirm",
		Metadata:  map[string]any{"reservation_id": r.ID, "band_name": r.BandName},
	})
	if err != nil {
		s.discard(ctx, token)
		return nil, &ProviderError{Op: "create order", Err: err}
	}
	if err := s.store.AttachPayment(ctx, r.ID, order.ID); err != nil {
		s.discard(ctx, token)
		return nil, &PersistenceError{Op: "attach payment", Err: err}
	}
	pid := order.ID
	r.PaymentID = &pid

	log.Info().Uint64("reservation_id", r.ID).Str("venue", r.VenueName).Str("date", r.Date).
		Str("slots", r.Slots).Str("order_id", order.ID).Msg("pending booking created")
	return &PendingBooking{
		Token:       token,
		Reservation: &r,
		OrderID:     order.ID,
		RedirectURL: order.RedirectURL,
		ExpiresAt:   exp,
		AmountMinor: r.AmountMinor,
		Currency:    s.cfg.Currency,
	}, nil
}

func (s *BookingService) discard(ctx context.Context, token string) {
	if _, err := s.store.DeleteByToken(context.WithoutCancel(ctx), token); err != nil {
		log.Error().Err(err).Msg("failed to remove pending booking")
	}
}

// Confirm completes the pending booking identified by token after the
// payer returns from the gateway.
func (s *BookingService) Confirm(ctx context.Context, token string) (*model.Reservation, error) {
	r, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	if r.PaymentStatus.Persisted() {
		return r, nil
	}
	if r.PaymentID == nil || *r.PaymentID == "" {
		return nil, &ProviderError{Op: "confirm", Err: errors.New("booking has no payment order")}
	}
	return s.finalize(ctx, r, *r.PaymentID)
}

// ConfirmByPayment completes the pending booking carrying paymentID.  It is
// driven by the gateway callback.
func (s *BookingService) ConfirmByPayment(ctx context.Context, paymentID string) (*model.Reservation, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, newValidationError("id", "is required")
	}
	r, err := s.store.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	if r.PaymentStatus.Persisted() {
		return r, nil
	}
	return s.finalize(ctx, r, paymentID)
}

// finalize verifies the payment with the gateway and promotes r.  Only a
// captured payment promotes.  A failed payment releases r; any other status
// leaves it pending.
func (s *BookingService) finalize(ctx context.Context, r *model.Reservation, paymentID string) (*model.Reservation, error) {
	p, err := s.provider.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, &ProviderError{Op: "fetch payment", Err: err}
	}
	if p.Status == payment.StatusFailed {
		// Failed, expired and reversed charges never capture; free the slots.
		s.discard(ctx, r.HoldToken)
		log.Info().Uint64("reservation_id", r.ID).Str("payment_id", paymentID).Msg("payment failed; pending booking released")
		return nil, &ProviderError{Op: "verify payment", Status: p.Status}
	}
	if p.Status != payment.StatusCaptured {
		return nil, &ProviderError{Op: "verify payment", Status: p.Status}
	}
	err = s.store.Promote(ctx, r.ID, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		// A concurrent callback may have promoted it first.
		cur, gerr := s.store.GetByPaymentID(ctx, paymentID)
		if gerr == nil && cur.PaymentStatus.Persisted() {
			return cur, nil
		}
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "promote booking", Err: err}
	}
	r.PaymentStatus = model.PaymentCompleted
	r.PaymentID = &paymentID
	r.ExpiresAt = nil
	log.Info().Uint64("reservation_id", r.ID).Str("payment_id", paymentID).Msg("booking confirmed")
	s.announce(ctx, r)
	return r, nil
}

// AdminBook validates and persists a booking immediately with status
// admin_booking.  No payment order is created.
func (s *BookingService) AdminBook(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	v, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	r := v.res
	r.PaymentStatus = model.PaymentAdminBooking
	r.IsAdminBooking = true
	r.CreatedAt = s.now()
	if err := s.reserve(ctx, &r, v.slots); err != nil {
		return nil, err
	}
	log.Info().Uint64("reservation_id", r.ID).Str("venue", r.VenueName).Str("date", r.Date).Msg("admin booking created")
	s.announce(ctx, &r)
	return &r, nil
}

// Cancel abandons the pending booking identified by token, releasing its
// slots.
func (s *BookingService) Cancel(ctx context.Context, token string) error {
	r, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPendingNotFound
	}
	if err != nil {
		return &PersistenceError{Op: "get booking", Err: err}
	}
	if r.PaymentStatus.Persisted() {
		return ErrBookingFinal
	}
	ok, err := s.store.DeleteByToken(ctx, token)
	if err != nil {
		return &PersistenceError{Op: "delete booking", Err: err}
	}
	if !ok {
		return ErrPendingNotFound
	}
	return nil
}

// Availability returns every slot label taken for venue on the DD-MM-YYYY
// date, across confirmed and unexpired pending bookings.
func (s *BookingService) Availability(ctx context.Context, venue, rawDate string) ([]string, error) {
	if strings.TrimSpace(venue) == "" {
		return nil, newValidationError("venue", "is required")
	}
	date, err := NormalizeDate("date", rawDate)
	if err != nil {
		return nil, err
	}
	labels, err := s.store.BookedSlots(ctx, venue, date)
	if err != nil {
		return nil, &PersistenceError{Op: "booked slots", Err: err}
	}
	return NewSlotSet(labels...).Labels(), nil
}

// Sweep deletes pending bookings whose hold has expired.
func (s *BookingService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.ExpirePending(ctx, s.now())
	if err != nil {
		return 0, &PersistenceError{Op: "expire pending", Err: err}
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *BookingService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.cfg.SweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("pending sweep failed")
			} else if n > 0 {
				log.Info().Int64("expired", n).Msg("pending bookings expired")
			}
		}
	}
}

// announce sends the confirmation mails and publishes the booking event.
// Failures are logged only.
func (s *BookingService) announce(ctx context.Context, r *model.Reservation) {
	ctx = context.WithoutCancel(ctx)
	if s.notifier != nil {
		subject := fmt.Sprintf("Jam pad booking confirmed: %s on %s", r.VenueName, r.Date)
		s.notifier.Notify(ctx, r.ContactEmail, subject, confirmationBody(r))
		if s.operatorEmail != "" {
			s.notifier.Notify(ctx, s.operatorEmail, "New booking: "+r.BandName, operatorBody(r))
		}
	}
	if s.publisher != nil {
		ev := queue.BookingConfirmedEvent{
			ReservationID: r.ID,
			VenueName:     r.VenueName,
			BandName:      r.BandName,
			ContactEmail:  r.ContactEmail,
			Date:          r.Date,
			Slots:         ParseSlots(r.Slots).Labels(),
			PaymentStatus: string(r.PaymentStatus),
			AdminBooking:  r.IsAdminBooking,
			AmountMinor:   r.AmountMinor,
			Currency:      s.cfg.Currency,
			ConfirmedAt:   s.now().Format(time.RFC3339),
		}
		if r.PaymentID != nil {
			ev.PaymentID = *r.PaymentID
		}
		if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
			log.Warn().Err(err).Uint64("reservation_id", r.ID).Msg("booking event not published")
		}
	}
}

func confirmationBody(r *model.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour jam pad booking is confirmed.\n\n", r.BandName)
	fmt.Fprintf(&b, "Venue: %s\nDate: %s\nSlots: %s\n", r.VenueName, r.Date, r.Slots)
	fmt.Fprintf(&b, "People: %s\nMicrophones: %s\n", r.PeopleCount, r.MicrophoneCount)
	if r.PaymentID != nil {
		fmt.Fprintf(&b, "Payment reference: %s\n", *r.PaymentID)
	}
	b.WriteString("\nSee you there!\n")
	return b.String()
}

func operatorBody(r *model.Reservation) string {
	kind := "paid"
	if r.IsAdminBooking {
		kind = "admin"
	}
	return fmt.Sprintf("Booking #%d (%s)\nBand: %s\nEmail: %s\nPhone: %s\nVenue: %s\nDate: %s\nSlots: %s\nPeople: %s\nMicrophones: %s\n",
		r.ID, kind, r.BandName, r.ContactEmail, r.ContactPhone, r.VenueName, r.Date, r.Slots, r.PeopleCount, r.MicrophoneCount)
}
