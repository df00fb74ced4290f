package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/jampad-booking/internal/model"
)

// ContactRepo stores contact form submissions.  Messages are immutable.
type ContactRepo struct {
	db *sql.DB
}

// NewContactRepo returns a ContactRepo bound to db.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Insert stores m and sets its id and creation time.
func (r *ContactRepo) Insert(ctx context.Context, m *model.ContactMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO contact_messages (name, email, phone, subject, message, submitted_on, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Name, m.Email, m.Phone, m.Subject, m.Message, m.Date, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// List returns messages newest first.
func (r *ContactRepo) List(ctx context.Context) ([]model.ContactMessage, error) {
	const q = `SELECT id, name, email, phone, subject, message, submitted_on, created_at
        FROM contact_messages ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ContactMessage{}
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message, &m.Date, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
