// Package audit records security-relevant actions on a best-effort,
// fire-and-forget basis. Events are appended by a dedicated worker under its
// own unit of work, fully decoupled from the triggering request: a caller's
// rollback does not unwind an audit write and an audit failure never reaches
// the caller. If the process dies between enqueue and persistence the event
// is lost; this trades durability for non-blocking behavior.
package audit

import (
	"context"
	"time"
)

// Outcome statuses recorded with each event.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Event is an immutable record of a security-relevant action. ActorID is nil
// for system-initiated actions. Once appended, events are never mutated or
// deleted.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actorUsername"`
	ActorID    *int64    `json:"actorId"`
	Action     string    `json:"actionType"`
	TargetType string    `json:"targetEntityType"`
	TargetID   string    `json:"targetEntityId"`
	Details    string    `json:"details"`
	IPAddress  string    `json:"ipAddress"`
	Status     string    `json:"status"`
}

// Filter selects events for a query. Actor is a case-insensitive substring
// match, Action an exact match, From/To an inclusive timestamp range.
type Filter struct {
	Actor   string
	Action  string
	From    *time.Time
	To      *time.Time
	Asc     bool
	Page    int
	PerPage int
}

// Page is one slice of a query result, ordered by timestamp.
type Page struct {
	Events  []Event `json:"events"`
	Total   int     `json:"total"`
	Number  int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// Store appends immutable events and answers filtered searches.
type Store interface {
	Append(ctx context.Context, e *Event) error
	Search(ctx context.Context, f Filter) ([]Event, int, error)
}
