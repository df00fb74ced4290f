package config

import (
	"strings"
	"time"
)

// BookingConfig controls the reservation flow.  Venues restricts the set of
// bookable rooms when non-empty.  SlotPriceMinor is charged per requested
// slot, in minor currency units.  PendingTTL bounds how long an unpaid
// booking holds its slots; LockTTL and LockWait govern the per venue/date
// advisory lock taken around the conflict check.
type BookingConfig struct {
	Venues         []string
	SlotPriceMinor int64
	Currency       string
	PendingTTL     time.Duration
	SweepInterval  time.Duration
	LockTTL        time.Duration
	LockWait       time.Duration
}

// LoadBookingConfig reads BOOKING_* variables, applying defaults when they
// are not set.  The default price mirrors the flat ₹599 charge.
func LoadBookingConfig() BookingConfig {
	cfg := BookingConfig{
		Venues:         splitList(envStr("BOOKING_VENUES", "")),
		SlotPriceMinor: int64(envInt("BOOKING_SLOT_PRICE_MINOR", 59900)),
		Currency:       strings.ToLower(envStr("BOOKING_CURRENCY", "inr")),
		PendingTTL:     envDur("BOOKING_PENDING_TTL", 15*time.Minute),
		SweepInterval:  envDur("BOOKING_SWEEP_INTERVAL", time.Minute),
		LockTTL:        envDur("BOOKING_LOCK_TTL", 10*time.Second),
		LockWait:       envDur("BOOKING_LOCK_WAIT", 2*time.Second),
	}
	if cfg.SlotPriceMinor < 1 {
		cfg.SlotPriceMinor = 1
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return cfg
}

// AllowsVenue reports whether name is bookable.  An empty venue list
// accepts any name.
func (b BookingConfig) AllowsVenue(name string) bool {
	_, ok := b.CanonicalVenue(name)
	return ok
}

// CanonicalVenue returns the configured spelling of name, matched without
// regard to case.  With no venue list configured name is returned as is.
func (b BookingConfig) CanonicalVenue(name string) (string, bool) {
	if len(b.Venues) == 0 {
		return name, true
	}
	for _, v := range b.Venues {
		if strings.EqualFold(v, name) {
			return v, true
		}
	}
	return name, false
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
