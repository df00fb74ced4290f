package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/jampad-booking/internal/model"
)

// ReservationRepo provides data access to the reservations table and its
// reservation_slots companion.  Every slot of a reservation is mirrored as
// a row in reservation_slots under UNIQUE(venue_name, booking_date,
// slot_label), so the database itself refuses double bookings.  Pending
// rows keep their slot rows until they are promoted, cancelled or expired.
// All timestamps are UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DateRange is an inclusive filter on the creation date of reservations.
// Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

const reservationColumns = `id, venue_name, band_name, contact_email, contact_phone, people_count, microphone_count,
        booking_date, slots, payment_id, payment_status, is_admin_booking, hold_token, expires_at, amount_minor, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var (
		r         model.Reservation
		paymentID sql.NullString
		holdToken sql.NullString
		expiresAt sql.NullTime
		status    string
	)
	if err := s.Scan(
		&r.ID, &r.VenueName, &r.BandName, &r.ContactEmail, &r.ContactPhone, &r.PeopleCount, &r.MicrophoneCount,
		&r.Date, &r.Slots, &paymentID, &status, &r.IsAdminBooking, &holdToken, &expiresAt, &r.AmountMinor, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.PaymentStatus = model.PaymentStatus(status)
	if paymentID.Valid {
		pid := paymentID.String
		r.PaymentID = &pid
	}
	if holdToken.Valid {
		r.HoldToken = holdToken.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		r.ExpiresAt = &t
	}
	return &r, nil
}

func scanReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// FindByVenueAndDate returns the reservations that currently occupy slots
// for venue on date: completed and admin bookings plus pending ones that
// have not expired.
func (r *ReservationRepo) FindByVenueAndDate(ctx context.Context, venue, date string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
        FROM reservations
        WHERE venue_name = ? AND booking_date = ?
          AND (payment_status <> 'pending' OR expires_at > UTC_TIMESTAMP())
        ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, venue, date)
	if err != nil {
		return nil, err
	}
	return scanReservations(rows)
}

// Insert stores res and one reservation_slots row per slot label in a
// single transaction and returns the new id.  A slot already held for the
// same venue and date yields ErrSlotTaken and nothing is written.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) (id uint64, err error) {
	labels := splitSlots(res.Slots)
	if len(labels) == 0 {
		return 0, errors.New("reservation has no slots")
	}
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO reservations (venue_name, band_name, contact_email, contact_phone, people_count,
        microphone_count, booking_date, slots, payment_id, payment_status, is_admin_booking, hold_token,
        expires_at, amount_minor, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, ins,
		res.VenueName, res.BandName, res.ContactEmail, res.ContactPhone, res.PeopleCount,
		res.MicrophoneCount, res.Date, res.Slots, nullString(res.PaymentID), string(res.PaymentStatus), res.IsAdminBooking,
		nullIfEmpty(res.HoldToken), nullTime(res.ExpiresAt), res.AmountMinor, createdAt,
	)
	if err != nil {
		return 0, err
	}
	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	id = uint64(lastID)

	query := `INSERT INTO reservation_slots (reservation_id, venue_name, booking_date, slot_label) VALUES `
	args := make([]interface{}, 0, len(labels)*4)
	for i, l := range labels {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, id, res.VenueName, res.Date, l)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return 0, ErrSlotTaken
		}
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return id, nil
}

// DeleteByID hard deletes a reservation and its slot rows.  It reports
// false when no reservation has that id.
func (r *ReservationRepo) DeleteByID(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListOrderedByCreatedAtDesc returns completed and admin bookings, newest
// first.  A non-nil rng restricts the creation date, both ends inclusive.
func (r *ReservationRepo) ListOrderedByCreatedAtDesc(ctx context.Context, rng *DateRange) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
        FROM reservations
        WHERE payment_status IN ('completed', 'admin_booking')`
	var args []interface{}
	if rng != nil && !rng.From.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, startOfDay(rng.From))
	}
	if rng != nil && !rng.To.IsZero() {
		q += ` AND created_at < ?`
		args = append(args, startOfDay(rng.To).AddDate(0, 0, 1))
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanReservations(rows)
}

// GetByToken returns the reservation carrying the given hold token.
func (r *ReservationRepo) GetByToken(ctx context.Context, token string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE hold_token = ?`
	return r.getOne(ctx, q, token)
}

// GetByPaymentID returns the reservation linked to a payment order.
func (r *ReservationRepo) GetByPaymentID(ctx context.Context, paymentID string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE payment_id = ?`
	return r.getOne(ctx, q, paymentID)
}

func (r *ReservationRepo) getOne(ctx context.Context, q string, arg interface{}) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// AttachPayment records the payment order id on a pending reservation.
func (r *ReservationRepo) AttachPayment(ctx context.Context, id uint64, paymentID string) error {
	const q = `UPDATE reservations SET payment_id = ? WHERE id = ? AND payment_status = 'pending'`
	return r.execOne(ctx, q, paymentID, id)
}

// Promote marks a pending reservation as completed with its payment id and
// clears the expiry.  ErrNotFound means the row is gone or already
// promoted.
func (r *ReservationRepo) Promote(ctx context.Context, id uint64, paymentID string) error {
	const q = `UPDATE reservations
        SET payment_status = 'completed', payment_id = ?, expires_at = NULL
        WHERE id = ? AND payment_status = 'pending'`
	return r.execOne(ctx, q, paymentID, id)
}

func (r *ReservationRepo) execOne(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByToken removes a pending reservation.  Confirmed reservations are
// never matched.
func (r *ReservationRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE hold_token = ? AND payment_status = 'pending'`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpirePending deletes pending reservations whose hold lapsed at or before
// now and returns how many were removed.
func (r *ReservationRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE payment_status = 'pending' AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookedSlots returns the slot labels held for venue on date by confirmed
// reservations and unexpired pending ones.
func (r *ReservationRepo) BookedSlots(ctx context.Context, venue, date string) ([]string, error) {
	const q = `SELECT rs.slot_label
        FROM reservation_slots rs
        JOIN reservations r ON r.id = rs.reservation_id
        WHERE rs.venue_name = ? AND rs.booking_date = ?
          AND (r.payment_status <> 'pending' OR r.expires_at > UTC_TIMESTAMP())
        ORDER BY rs.slot_label`
	rows, err := r.db.QueryContext(ctx, q, venue, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func splitSlots(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
