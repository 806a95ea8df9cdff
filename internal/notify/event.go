package notify

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds published by the daemon.
const (
	KindCountersRefreshed = "counters.refreshed"
	KindJobCompleted      = "jobs.completed"
	KindJobCancelled      = "jobs.cancelled"
	KindContactsImported  = "contacts.imported"
	KindMessagesImported  = "messages.imported"
	KindDaemonStatus      = "daemon.status_changed"
)

// Event is a fire-and-forget notification. Payload is optional.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(kind string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
