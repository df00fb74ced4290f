package service

import (
	"context"

	"github.com/iliyamo/jampad-booking/internal/model"
)

// ConflictFinder is the part of the reservation store the conflict checker
// needs.
type ConflictFinder interface {
	FindByVenueAndDate(ctx context.Context, venue, date string) ([]model.Reservation, error)
}

// HasConflict reports whether any booking for venue on date shares a slot
// with requested.  It returns the first overlapping reservation.  An empty
// requested set never conflicts.
func HasConflict(ctx context.Context, store ConflictFinder, venue, date string, requested SlotSet) (bool, *model.Reservation, error) {
	if requested.Empty() {
		return false, nil, nil
	}
	existing, err := store.FindByVenueAndDate(ctx, venue, date)
	if err != nil {
		return false, nil, err
	}
	for i := range existing {
		if !ParseSlots(existing[i].Slots).Intersect(requested).Empty() {
			r := existing[i]
			return true, &r, nil
		}
	}
	return false, nil, nil
}
