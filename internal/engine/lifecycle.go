package engine

import (
	"github.com/mnemograph/mnemo/internal/store"
)

// statusCycle is the "tap to progress" transition table. Every state
// has an outgoing transition; archived wraps back to pending.
var statusCycle = map[store.Status]store.Status{
	store.StatusPending:    store.StatusInProgress,
	store.StatusInProgress: store.StatusDone,
	store.StatusDone:       store.StatusArchived,
	store.StatusArchived:   store.StatusPending,
}

// AdvanceStatus moves an event to the next status in the cycle and
// returns the updated node.
func AdvanceStatus(db *store.DB, eventID string) (*store.Node, error) {
	node, err := db.GetNode(eventID)
	if err != nil {
		return nil, err
	}
	if node.Type != store.TypeEvent {
		return nil, &store.ValidationError{Field: "type", Reason: "status advance applies to events only"}
	}

	next, ok := statusCycle[node.Status]
	if !ok {
		next = store.StatusPending
	}
	return db.UpdateNode(eventID, store.NodeUpdate{Status: &next})
}

// SetStatus sets an event's status directly. Any state is reachable
// from any other; detail views use this for explicit edits, so no
// transition is blocked.
func SetStatus(db *store.DB, eventID string, status store.Status) (*store.Node, error) {
	if !store.ValidStatus(status) {
		return nil, &store.ValidationError{Field: "status", Reason: "unknown status"}
	}

	node, err := db.GetNode(eventID)
	if err != nil {
		return nil, err
	}
	if node.Type != store.TypeEvent {
		return nil, &store.ValidationError{Field: "type", Reason: "status applies to events only"}
	}

	return db.UpdateNode(eventID, store.NodeUpdate{Status: &status})
}
