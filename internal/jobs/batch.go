package jobs

import (
	"errors"
	"fmt"

	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/folder"
	"github.com/matheus3301/mailcount/internal/store"
)

// Action is the bulk operation a batch applies to each message.
type Action string

const (
	ActionRead   Action = "read"
	ActionUnread Action = "unread"
	ActionMove   Action = "move"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionRead, ActionUnread, ActionMove:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Batch is a bulk operation over messages the user selected in Source.
type Batch struct {
	Action      Action
	IDs         []string
	Source      folder.Location
	Destination folder.Location
}

// MessageIDs implements Policy.
func (b Batch) MessageIDs() []string {
	return b.IDs
}

// MessageLocation implements Policy.
func (b Batch) MessageLocation() folder.Location {
	return b.Source
}

// Validate checks that the batch can be applied.
func (b Batch) Validate() error {
	if _, err := ParseAction(string(b.Action)); err != nil {
		return err
	}
	if len(b.IDs) == 0 {
		return errors.New("batch has no message ids")
	}
	if !b.Source.Valid() {
		return fmt.Errorf("invalid source location %d", b.Source)
	}
	if b.Action == ActionMove && !b.Destination.Valid() {
		return fmt.Errorf("invalid destination location %d", b.Destination)
	}
	return nil
}

// MessageStore is the part of the local cache a batch mutates.
type MessageStore interface {
	counter.MessageFinder
	SetRead(id string, read bool) error
	SetLocation(id string, loc folder.Location) error
}

// apply performs the batch action on one message and moves the affected
// unread counters with it. Unknown messages and messages that are no longer
// in Source are skipped.
func (b Batch) apply(db MessageStore, counters counter.Store, id string) (bool, error) {
	msg, err := db.FindMessageByID(id)
	if err != nil {
		return false, fmt.Errorf("find message %q: %w", id, err)
	}
	if msg == nil || msg.Location != b.Source {
		return false, nil
	}

	switch b.Action {
	case ActionRead:
		if msg.IsRead {
			return false, nil
		}
		if err := db.SetRead(id, true); err != nil {
			return false, fmt.Errorf("mark %q read: %w", id, err)
		}
		return adjust(counters, msg, msg.Location, -1)
	case ActionUnread:
		if !msg.IsRead {
			return false, nil
		}
		if err := db.SetRead(id, false); err != nil {
			return false, fmt.Errorf("mark %q unread: %w", id, err)
		}
		return adjust(counters, msg, msg.Location, 1)
	case ActionMove:
		if msg.Location == b.Destination {
			return false, nil
		}
		if err := db.SetLocation(id, b.Destination); err != nil {
			return false, fmt.Errorf("move %q: %w", id, err)
		}
		if msg.IsRead {
			return false, nil
		}
		out, err := adjust(counters, msg, msg.Location, -1)
		if err != nil {
			return out, err
		}
		in, err := adjust(counters, msg, b.Destination, 1)
		return out || in, err
	}
	return false, fmt.Errorf("unknown action %q", b.Action)
}

// pending returns the IDs from ids that still sit in Source. Reconciling
// any other message would credit its location and debit Source for a move
// that never happened.
func (b Batch) pending(db counter.MessageFinder, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		msg, err := db.FindMessageByID(id)
		if err != nil {
			return out, fmt.Errorf("find message %q: %w", id, err)
		}
		if msg != nil && msg.Location == b.Source {
			out = append(out, id)
		}
	}
	return out, nil
}

func adjust(counters counter.Store, msg *store.Message, loc folder.Location, delta int) (bool, error) {
	changed, err := counter.Adjust(counters, loc, delta)
	if err != nil {
		return false, fmt.Errorf("adjust counter for %q: %w", msg.ID, err)
	}
	return changed, nil
}
