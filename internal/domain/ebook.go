package domain

import (
	"fmt"
	"slices"
	"time"
)

// MinEbookNameLength is the minimum length for an ebook display name.
const MinEbookNameLength = 3

// Ebook is a user-curated, ordered set of catalog activities.
// The activity sequence order is the export/display order, and the
// sequence never contains two activities with the same id.
type Ebook struct {
	CreatedAt  time.Time  `json:"created_at"`
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	Activities []Activity `json:"activities"`
}

// ValidateEbookName checks an ebook display name against naming rules.
func ValidateEbookName(name string) error {
	if len(name) < MinEbookNameLength {
		return fmt.Errorf("ebook name must be at least %d characters", MinEbookNameLength)
	}
	return nil
}

// AddActivity appends an activity to the sequence if its id is not already present.
// Returns false when the activity was already in the ebook.
func (e *Ebook) AddActivity(a Activity) bool {
	if e.ContainsActivity(a.ID) {
		return false // Already present
	}
	e.Activities = append(e.Activities, a)
	return true
}

// RemoveActivity removes the activity with the given id from the sequence.
// Returns false if the id was not present.
func (e *Ebook) RemoveActivity(activityID string) bool {
	for i, a := range e.Activities {
		if a.ID == activityID {
			e.Activities = append(e.Activities[:i], e.Activities[i+1:]...)
			return true
		}
	}
	return false
}

// ContainsActivity checks whether an activity id is in this ebook.
func (e *Ebook) ContainsActivity(activityID string) bool {
	return slices.ContainsFunc(e.Activities, func(a Activity) bool {
		return a.ID == activityID
	})
}

// Reorder replaces the activity sequence with the order given by activityIDs.
// The ids must be a permutation of the current sequence: same length, same
// set of ids, no duplicates. Anything else is rejected so a buggy caller can
// never persist a corrupted sequence.
func (e *Ebook) Reorder(activityIDs []string) error {
	if len(activityIDs) != len(e.Activities) {
		return fmt.Errorf("reorder sequence has %d ids, ebook has %d activities", len(activityIDs), len(e.Activities))
	}

	byID := make(map[string]Activity, len(e.Activities))
	for _, a := range e.Activities {
		byID[a.ID] = a
	}

	reordered := make([]Activity, 0, len(activityIDs))
	seen := make(map[string]bool, len(activityIDs))
	for _, id := range activityIDs {
		if seen[id] {
			return fmt.Errorf("reorder sequence contains duplicate id %q", id)
		}
		seen[id] = true

		a, ok := byID[id]
		if !ok {
			return fmt.Errorf("reorder sequence references unknown activity %q", id)
		}
		reordered = append(reordered, a)
	}

	e.Activities = reordered
	return nil
}

// CloneActivities returns a value copy of the activity sequence.
// Mutating the copy never affects the original ebook.
func (e *Ebook) CloneActivities() []Activity {
	return slices.Clone(e.Activities)
}

// ActivityIDs returns the ids of the activity sequence in order.
func (e *Ebook) ActivityIDs() []string {
	ids := make([]string, len(e.Activities))
	for i, a := range e.Activities {
		ids[i] = a.ID
	}
	return ids
}
