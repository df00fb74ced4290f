package model

import "time"

// PaymentStatus tracks where a reservation is in the payment flow.
type PaymentStatus string

const (
	// PaymentPending marks a reservation held while the payment provider
	// round trip is in progress.  Pending rows carry a hold token and expire.
	PaymentPending PaymentStatus = "pending"
	// PaymentCompleted marks a reservation whose payment was captured.
	PaymentCompleted PaymentStatus = "completed"
	// PaymentAdminBooking marks a reservation created by the administrator
	// without going through the payment provider.
	PaymentAdminBooking PaymentStatus = "admin_booking"
)

// Persisted reports whether the status is a terminal, durable state.
func (s PaymentStatus) Persisted() bool {
	return s == PaymentCompleted || s == PaymentAdminBooking
}

// Reservation records one booking of a jam pad on a given date.  It
// corresponds to a row in the `reservations` table; the individual slot
// labels are mirrored into `reservation_slots` so that the database can
// reject double bookings.
//
// Fields:
//
//	ID              – primary key identifier.
//	VenueName       – bookable room identifier.
//	BandName        – name the band booked under.
//	ContactEmail    – requester email, receives the confirmation.
//	ContactPhone    – requester phone number.
//	PeopleCount     – free-form head count, informational only.
//	MicrophoneCount – free-form microphone count, informational only.
//	Date            – reservation date in YYYY-MM-DD form.
//	Slots           – comma-joined slot labels as submitted.
//	PaymentID       – payment provider reference (nil until an order exists).
//	PaymentStatus   – pending, completed or admin_booking.
//	IsAdminBooking  – true when created by the administrator.
//	HoldToken       – server-issued token identifying a pending reservation.
//	ExpiresAt       – when a pending reservation lapses (nil once persisted).
//	AmountMinor     – amount requested from the provider in minor units.
//	CreatedAt       – record creation timestamp.
type Reservation struct {
	ID              uint64        `json:"id"`
	VenueName       string        `json:"venue_name"`
	BandName        string        `json:"band_name"`
	ContactEmail    string        `json:"contact_email"`
	ContactPhone    string        `json:"contact_phone"`
	PeopleCount     string        `json:"people_count"`
	MicrophoneCount string        `json:"microphone_count"`
	Date            string        `json:"date"`
	Slots           string        `json:"slots"`
	PaymentID       *string       `json:"payment_id,omitempty"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	IsAdminBooking  bool          `json:"is_admin_booking"`
	HoldToken       string        `json:"-"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
	AmountMinor     int64         `json:"amount_minor"`
	CreatedAt       time.Time     `json:"created_at"`
}
