package contacts

import (
	"fmt"
	"strconv"

	"github.com/matheus3301/mailcount/internal/notify"
	"github.com/matheus3301/mailcount/internal/store"
	"go.uber.org/zap"
)

const totalCheckpoint = "contacts_total"

// ContactWriter is the part of the local cache the importer needs.
type ContactWriter interface {
	BulkUpsertContacts(contacts []store.Contact) error
	ContactCount() (int64, error)
	UpdateCheckpoint(key, value string) error
	Checkpoint(key string) (string, error)
}

// ImportResult summarizes one imported page.
type ImportResult struct {
	Imported int
	Stored   int64
	Total    int
	HasMore  bool
}

// Importer caches listing pages in the local store.
type Importer struct {
	db         ContactWriter
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewImporter creates an importer. dispatcher may be nil.
func NewImporter(db ContactWriter, d *notify.Dispatcher, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{db: db, dispatcher: d, logger: logger}
}

// Import upserts the page's contacts and records the server total.
func (im *Importer) Import(l *Listing) (*ImportResult, error) {
	page := l.GetContacts()
	records := make([]store.Contact, 0, len(page))
	for _, c := range page {
		if c.ID == "" {
			continue
		}
		records = append(records, store.Contact{
			ID:         c.ID,
			Name:       c.Name,
			UID:        c.UID,
			Size:       c.Size,
			CreateTime: c.CreateTime,
			ModifyTime: c.ModifyTime,
			LabelIDs:   c.LabelIDs,
		})
	}
	if err := im.db.BulkUpsertContacts(records); err != nil {
		return nil, fmt.Errorf("store contacts: %w", err)
	}
	if err := im.db.UpdateCheckpoint(totalCheckpoint, strconv.Itoa(l.GetTotal())); err != nil {
		return nil, fmt.Errorf("store contacts total: %w", err)
	}
	stored, err := im.db.ContactCount()
	if err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}

	res := &ImportResult{
		Imported: len(records),
		Stored:   stored,
		Total:    l.GetTotal(),
		HasMore:  stored < int64(l.GetTotal()),
	}
	im.logger.Info("contacts page imported",
		zap.Int("imported", res.Imported),
		zap.Int64("stored", res.Stored),
		zap.Int("total", res.Total))
	if im.dispatcher != nil {
		im.dispatcher.Publish(notify.NewEvent(notify.KindContactsImported, *res))
	}
	return res, nil
}

// ServerTotal returns the server-side contact count recorded by the last
// import, or 0 before any import.
func (im *Importer) ServerTotal() (int, error) {
	v, err := im.db.Checkpoint(totalCheckpoint)
	if err != nil {
		return 0, fmt.Errorf("read contacts total: %w", err)
	}
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse contacts total %q: %w", v, err)
	}
	return n, nil
}
