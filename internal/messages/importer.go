package messages

import (
	"errors"
	"fmt"

	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/folder"
	"github.com/matheus3301/mailcount/internal/notify"
	"github.com/matheus3301/mailcount/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidLocation is returned for a page that names an unknown location.
var ErrInvalidLocation = errors.New("invalid location")

// MessageWriter is the part of the local cache the importer needs.
type MessageWriter interface {
	counter.MessageFinder
	UpsertMessage(m *store.Message) error
}

// ImportResult summarizes one imported page.
type ImportResult struct {
	Imported        int
	Total           int
	CountersChanged bool
}

// Importer caches message pages and keeps the unread counters in step.
type Importer struct {
	db         MessageWriter
	counters   counter.Store
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewImporter creates an importer. dispatcher may be nil.
func NewImporter(db MessageWriter, counters counter.Store, d *notify.Dispatcher, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{db: db, counters: counters, dispatcher: d, logger: logger}
}

// Import upserts the page's messages. A message that was unread before is
// debited from its old location and a message that is unread now is
// credited to its new one; locations without a counter are left alone.
// The whole page is rejected before any write if a location is unknown.
func (im *Importer) Import(p *Page) (*ImportResult, error) {
	page := p.GetMessages()
	for _, m := range page {
		if !folder.Location(m.Location).Valid() {
			return nil, fmt.Errorf("message %q: %w %d", m.ID, ErrInvalidLocation, m.Location)
		}
	}

	res := &ImportResult{Total: p.Total}
	for _, m := range page {
		if m.ID == "" {
			continue
		}
		next := &store.Message{
			ID:       m.ID,
			Subject:  m.Subject,
			Location: folder.Location(m.Location),
			IsRead:   m.Unread == 0,
			Time:     m.Time,
		}
		prev, err := im.db.FindMessageByID(m.ID)
		if err != nil {
			return res, fmt.Errorf("find message %q: %w", m.ID, err)
		}
		if err := im.db.UpsertMessage(next); err != nil {
			return res, fmt.Errorf("store message %q: %w", m.ID, err)
		}
		res.Imported++

		changed, err := im.track(prev, next)
		if err != nil {
			return res, err
		}
		res.CountersChanged = res.CountersChanged || changed
	}

	im.logger.Info("messages page imported",
		zap.Int("imported", res.Imported),
		zap.Int("total", res.Total),
		zap.Bool("counters_changed", res.CountersChanged))
	if im.dispatcher != nil {
		im.dispatcher.Publish(notify.NewEvent(notify.KindMessagesImported, *res))
		if res.CountersChanged {
			im.dispatcher.Publish(notify.NewEvent(notify.KindCountersRefreshed, nil))
		}
	}
	return res, nil
}

func (im *Importer) track(prev, next *store.Message) (bool, error) {
	wasUnread := prev != nil && !prev.IsRead
	if wasUnread && !next.IsRead && prev.Location == next.Location {
		return false, nil
	}

	changed := false
	if wasUnread {
		ok, err := counter.Adjust(im.counters, prev.Location, -1)
		if err != nil {
			return false, fmt.Errorf("debit %s for %q: %w", prev.Location, next.ID, err)
		}
		changed = ok
	}
	if !next.IsRead {
		ok, err := counter.Adjust(im.counters, next.Location, 1)
		if err != nil {
			return changed, fmt.Errorf("credit %s for %q: %w", next.Location, next.ID, err)
		}
		changed = changed || ok
	}
	return changed, nil
}
