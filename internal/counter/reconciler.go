package counter

import (
	"fmt"

	"github.com/matheus3301/mailcount/internal/folder"
	"github.com/matheus3301/mailcount/internal/store"
	"go.uber.org/zap"
)

// MessageFinder resolves message IDs against the local cache. It returns
// nil, nil for an unknown ID.
type MessageFinder interface {
	FindMessageByID(id string) (*store.Message, error)
}

// Result describes what a reconciliation changed.
type Result struct {
	Source folder.Location
	// TotalUnread is the number of resolved messages that are still unread.
	TotalUnread int
	// Incremented counts increments applied per location, only for
	// locations that had a counter.
	Incremented map[folder.Location]int
	// Refreshed is true when the source counter existed and was
	// decremented. Observers are only notified in that case.
	Refreshed bool
	// SourceCount is the source counter after the decrement.
	SourceCount int
}

// Reconciler repairs unread counters after a batch job over a set of
// messages is cancelled.
type Reconciler struct {
	messages MessageFinder
	logger   *zap.Logger
}

// NewReconciler creates a reconciler that resolves messages through finder.
func NewReconciler(finder MessageFinder, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{messages: finder, logger: logger}
}

// Reconcile credits every still-unread message back to the counter of the
// location it currently lives in, then debits the source location by the
// number of such messages.
//
// Unknown messages and missing counters are skipped. Each counter write is
// its own read-modify-write; a store error stops the scan and leaves any
// earlier writes in place.
func (r *Reconciler) Reconcile(counters Store, messageIDs []string, source folder.Location) (*Result, error) {
	res := &Result{
		Source:      source,
		Incremented: make(map[folder.Location]int),
	}

	for _, id := range messageIDs {
		msg, err := r.messages.FindMessageByID(id)
		if err != nil {
			return res, fmt.Errorf("find message %q: %w", id, err)
		}
		if msg == nil || msg.IsRead {
			continue
		}

		c, err := counters.FindUnreadLocation(msg.Location)
		if err != nil {
			return res, fmt.Errorf("find counter %s: %w", msg.Location, err)
		}
		if c != nil {
			c.Increment()
			if err := counters.SaveUnreadLocation(c); err != nil {
				return res, fmt.Errorf("save counter %s: %w", msg.Location, err)
			}
			res.Incremented[msg.Location]++
		}
		res.TotalUnread++
	}

	src, err := counters.FindUnreadLocation(source)
	if err != nil {
		return res, fmt.Errorf("find source counter %s: %w", source, err)
	}
	if src == nil {
		r.logger.Debug("no counter for source location, skipping decrement",
			zap.Stringer("location", source), zap.Int("total_unread", res.TotalUnread))
		return res, nil
	}

	src.Decrement(res.TotalUnread)
	if err := counters.SaveUnreadLocation(src); err != nil {
		return res, fmt.Errorf("save source counter %s: %w", source, err)
	}
	res.Refreshed = true
	res.SourceCount = src.Count

	r.logger.Info("unread counters reconciled",
		zap.Stringer("source", source),
		zap.Int("messages", len(messageIDs)),
		zap.Int("total_unread", res.TotalUnread),
		zap.Int("source_count", src.Count))
	return res, nil
}
