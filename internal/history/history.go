// Package history reports which stories were already used by recent digests.
package history

import (
	"log"

	"github.com/TobiSchelling/TechBrief/internal/database"
)

// Store reads persisted digests.
type Store interface {
	GetDigestsSince(since string) ([]database.DigestRecord, error)
}

// Tracker resolves the history window for a digest date.
type Tracker struct {
	store   Store
	horizon int
}

// NewTracker creates a tracker looking back horizon days.
func NewTracker(store Store, horizon int) *Tracker {
	return &Tracker{store: store, horizon: horizon}
}

// UsedIDs returns every story ID referenced by a digest dated in the
// half-open window [date-horizon, date). A plain since-cutoff lookup would
// also count a record already written for date and every later one. Here
// those are skipped, so re-running a day reselects from the same pool
// instead of excluding its own earlier picks. Read failures and malformed
// dates yield an empty set.
func (t *Tracker) UsedIDs(date string) map[string]struct{} {
	used := make(map[string]struct{})

	since, err := database.DaysBefore(date, t.horizon)
	if err != nil {
		log.Printf("Warning: invalid digest date %q, ignoring history: %v", date, err)
		return used
	}

	digests, err := t.store.GetDigestsSince(since)
	if err != nil {
		log.Printf("Warning: could not read digest history, continuing without it: %v", err)
		return used
	}

	for _, d := range digests {
		if d.DigestDate >= date {
			continue
		}
		for _, id := range d.StoryIDs {
			used[id] = struct{}{}
		}
	}
	return used
}

// Slice returns the IDs of a set in no particular order.
func Slice(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
