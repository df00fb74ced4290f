package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables on first start.  Statements are idempotent.
// Venue names and slot labels compare byte for byte so the unique slot key
// agrees with the in-process conflict check and the lock key.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
        id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        venue_name       VARCHAR(100)  COLLATE utf8mb4_bin NOT NULL,
        band_name        VARCHAR(200)  NOT NULL,
        contact_email    VARCHAR(255)  NOT NULL,
        contact_phone    VARCHAR(50)   NOT NULL,
        people_count     VARCHAR(20)   NOT NULL,
        microphone_count VARCHAR(20)   NOT NULL,
        booking_date     CHAR(10)      NOT NULL,
        slots            VARCHAR(500)  NOT NULL,
        payment_id       VARCHAR(100)  NULL,
        payment_status   ENUM('pending','completed','admin_booking') NOT NULL DEFAULT 'pending',
        is_admin_booking BOOLEAN       NOT NULL DEFAULT FALSE,
        hold_token       CHAR(48)      NULL,
        expires_at       DATETIME      NULL,
        amount_minor     BIGINT        NOT NULL DEFAULT 0,
        created_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE KEY uq_reservations_payment (payment_id),
        UNIQUE KEY uq_reservations_hold (hold_token),
        KEY idx_reservations_venue_date (venue_name, booking_date),
        KEY idx_reservations_pending (payment_status, expires_at),
        KEY idx_reservations_created (created_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservation_slots (
        reservation_id BIGINT UNSIGNED NOT NULL,
        venue_name     VARCHAR(100)    COLLATE utf8mb4_bin NOT NULL,
        booking_date   CHAR(10)        NOT NULL,
        slot_label     VARCHAR(50)     COLLATE utf8mb4_bin NOT NULL,
        UNIQUE KEY uq_slot (venue_name, booking_date, slot_label),
        KEY idx_slots_reservation (reservation_id),
        CONSTRAINT fk_slots_reservation FOREIGN KEY (reservation_id)
            REFERENCES reservations (id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	// Brings tables created with the default collation in line.
	`ALTER TABLE reservations
        MODIFY venue_name VARCHAR(100) COLLATE utf8mb4_bin NOT NULL`,
	`ALTER TABLE reservation_slots
        MODIFY venue_name VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
        MODIFY slot_label VARCHAR(50)  COLLATE utf8mb4_bin NOT NULL`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
        id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        name         VARCHAR(200) NOT NULL,
        email        VARCHAR(255) NOT NULL,
        phone        VARCHAR(50)  NOT NULL,
        subject      VARCHAR(255) NOT NULL,
        message      TEXT         NOT NULL,
        submitted_on CHAR(10)     NOT NULL,
        created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
        KEY idx_contact_created (created_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
