package model

import "time"

// ContactMessage is an inquiry submitted through the contact form.  It has
// no lifecycle beyond creation and corresponds to a row in the
// `contact_messages` table.
type ContactMessage struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Date      string    `json:"date"` // submission date, YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
}
