package service

import (
	"strings"
	"time"
)

const (
	// InputDateLayout is the DD-MM-YYYY form accepted from clients.
	InputDateLayout = "02-01-2006"
	// StoreDateLayout is the canonical YYYY-MM-DD form used in storage.
	StoreDateLayout = "2006-01-02"
)

// NormalizeDate converts a DD-MM-YYYY date into YYYY-MM-DD.  Malformed or
// impossible dates yield a ValidationError on the given field.
func NormalizeDate(field, raw string) (string, error) {
	t, err := time.Parse(InputDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", newValidationError(field, "must be a valid date in DD-MM-YYYY format")
	}
	return t.Format(StoreDateLayout), nil
}

// ParseStoreDate parses a YYYY-MM-DD date as used by the admin listing
// filters.  An empty input returns the zero time and no error.
func ParseStoreDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(StoreDateLayout, raw)
	if err != nil {
		return time.Time{}, newValidationError(field, "must be a valid date in YYYY-MM-DD format")
	}
	return t, nil
}
