package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/jampad-booking/internal/config"
	"github.com/iliyamo/jampad-booking/internal/model"
	"github.com/iliyamo/jampad-booking/internal/payment"
	"github.com/iliyamo/jampad-booking/internal/queue"
	"github.com/iliyamo/jampad-booking/internal/repository"
)

// memStore is an in-memory ReservationStore enforcing the same unique slot
// rule as the MySQL schema.
type memStore struct {
	mu      sync.Mutex
	nextID  uint64
	rows    map[uint64]*model.Reservation
	findErr error
}

func newMemStore() *memStore { return &memStore{rows: map[uint64]*model.Reservation{}} }

func (m *memStore) FindByVenueAndDate(_ context.Context, venue, date string) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []model.Reservation
	for _, id := range m.ids() {
		r := m.rows[id]
		if r.VenueName == venue && r.Date == date && activeAt(r, time.Now().UTC()) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// activeAt mirrors the store's expiry filter: persisted reservations always
// hold their slots, pending ones until they expire.
func activeAt(r *model.Reservation, now time.Time) bool {
	if r.PaymentStatus.Persisted() {
		return true
	}
	return r.ExpiresAt != nil && r.ExpiresAt.After(now)
}

func (m *memStore) ids() []uint64 {
	ids := make([]uint64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memStore) Insert(_ context.Context, r *model.Reservation) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := ParseSlots(r.Slots)
	for _, ex := range m.rows {
		if ex.VenueName == r.VenueName && ex.Date == r.Date && !ParseSlots(ex.Slots).Intersect(want).Empty() {
			return 0, repository.ErrSlotTaken
		}
	}
	m.nextID++
	cp := *r
	cp.ID = m.nextID
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) find(pred func(*model.Reservation) bool) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if pred(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetByToken(_ context.Context, token string) (*model.Reservation, error) {
	return m.find(func(r *model.Reservation) bool { return r.HoldToken == token })
}

func (m *memStore) GetByPaymentID(_ context.Context, pid string) (*model.Reservation, error) {
	return m.find(func(r *model.Reservation) bool { return r.PaymentID != nil && *r.PaymentID == pid })
}

func (m *memStore) AttachPayment(_ context.Context, id uint64, pid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.PaymentID = &pid
	return nil
}

func (m *memStore) Promote(_ context.Context, id uint64, pid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.PaymentStatus != model.PaymentPending {
		return repository.ErrNotFound
	}
	r.PaymentStatus = model.PaymentCompleted
	r.PaymentID = &pid
	r.ExpiresAt = nil
	return nil
}

func (m *memStore) DeleteByToken(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rows {
		if r.HoldToken == token && r.PaymentStatus == model.PaymentPending {
			delete(m.rows, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if r.PaymentStatus == model.PaymentPending && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) BookedSlots(ctx context.Context, venue, date string) ([]string, error) {
	rs, err := m.FindByVenueAndDate(ctx, venue, date)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rs {
		out = append(out, ParseSlots(r.Slots).Labels()...)
	}
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeProvider struct {
	mu          sync.Mutex
	createErr   error
	fetchErr    error
	status      payment.Status
	orders      int
	fetches     int
	lastRequest payment.OrderRequest
}

func (f *fakeProvider) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.orders++
	return &payment.Order{ID: "chrg_test_" + strconv.Itoa(f.orders), RedirectURL: "https://pay.example/r", Status: payment.StatusCreated}, nil
}

func (f *fakeProvider) FetchPayment(_ context.Context, id string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &payment.Payment{ID: id, Status: f.status}, nil
}

type sentMail struct{ to, subject string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeNotifier) Notify(_ context.Context, to, subject, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject})
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeLocker struct {
	mu       sync.Mutex
	busy     bool
	err      error
	acquired int
	released int
}

func (f *fakeLocker) Acquire(context.Context, string, string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return nil, repository.ErrLockBusy
	}
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	return func() {
		f.mu.Lock()
		f.released++
		f.mu.Unlock()
	}, nil
}

type harness struct {
	svc       *BookingService
	store     *memStore
	provider  *fakeProvider
	notifier  *fakeNotifier
	publisher *fakePublisher
	locker    *fakeLocker
}

func newHarness() *harness {
	h := &harness{
		store:     newMemStore(),
		provider:  &fakeProvider{status: payment.StatusCaptured},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		locker:    &fakeLocker{},
	}
	cfg := config.Config{
		OperatorEmail: "ops@jampad.example",
		PublicBaseURL: "http://localhost:8080/",
		Booking: config.BookingConfig{
			SlotPriceMinor: 59900,
			Currency:       "inr",
			PendingTTL:     15 * time.Minute,
			SweepInterval:  time.Minute,
		},
	}
	h.svc = NewBookingService(cfg, h.store, h.provider, h.notifier, h.publisher, h.locker)
	var (
		mu sync.Mutex
		n  int
	)
	h.svc.newToken = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "tok" + strconv.Itoa(n), nil
	}
	return h
}

func request(venue, date, slots string) BookingRequest {
	return BookingRequest{
		Venue:    venue,
		BandName: "The Loud Ones",
		Email:    "band@example.com",
		Phone:    "9999999999",
		People:   "4",
		Mics:     "2",
		Slots:    slots,
		Date:     date,
	}
}

var errNetwork = errors.New("dial tcp: network unreachable")
