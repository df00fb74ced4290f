// Package repository implements MySQL persistence for reservations and
// contact messages, plus the Redis advisory lock guarding bookings.  The
// sentinel errors below let higher layers tell failure kinds apart.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup or conditional update matches no
// row.  Handlers translate it into 404.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned when inserting a reservation would book a slot
// already held for the same venue and date.
var ErrSlotTaken = errors.New("slot already taken")

// ErrLockBusy is returned by VenueLock.Acquire when another booking holds
// the lock for the same venue and date past the wait window.
var ErrLockBusy = errors.New("booking lock busy")

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
