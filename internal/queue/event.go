// Package queue defines the booking events exchanged over RabbitMQ together
// with their publisher and the audit log consumer.
package queue

// BookingConfirmedQueue is the durable queue carrying BookingConfirmedEvent.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a reservation reaches a persisted
// state, either after a captured payment or as an admin booking.  It
// carries enough detail for consumers to log or notify without querying the
// database.
type BookingConfirmedEvent struct {
	ReservationID uint64   `json:"reservation_id"`
	VenueName     string   `json:"venue_name"`
	BandName      string   `json:"band_name"`
	ContactEmail  string   `json:"contact_email"`
	Date          string   `json:"date"`
	Slots         []string `json:"slots"`
	PaymentID     string   `json:"payment_id,omitempty"`
	PaymentStatus string   `json:"payment_status"`
	AdminBooking  bool     `json:"admin_booking"`
	AmountMinor   int64    `json:"amount_minor"`
	Currency      string   `json:"currency"`
	ConfirmedAt   string   `json:"confirmed_at"`
}
