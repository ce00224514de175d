package services

import (
	"errors"
	"fmt"
	"time"

	"string_server/models"
	"string_server/store"
)

// Clock returns the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

// Now returns the current time in UTC.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// Real-time event names pushed to participants after a commit.
const (
	EventMatch   = "match"
	EventMessage = "message"
	EventKnot    = "knot"
	EventDate    = "date"
)

// Notifier pushes best-effort events to a user. Delivery never affects a transaction.
type Notifier interface {
	Notify(userID, event string, payload interface{})
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, interface{}) {}

func notifyAll(n Notifier, event string, payload interface{}, userIDs ...string) {
	if n == nil {
		return
	}
	for _, id := range userIDs {
		n.Notify(id, event, payload)
	}
}

// lookupErr turns a store miss into a NotFoundError for the given entity.
func lookupErr(err error, entity, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return models.NewNotFoundError(entity, id)
	}
	return err
}

// txErr maps what a transaction returned to the business error taxonomy.
// Business errors pass through; anything else is an internal failure.
func txErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := models.KindOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrConflict):
		return models.NewConflictError("the record was changed by someone else, please retry")
	case errors.Is(err, store.ErrDuplicate):
		return models.NewDuplicateError("the record already exists")
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError("record", "")
	}
	return fmt.Errorf("ledger transaction failed: %w", err)
}
