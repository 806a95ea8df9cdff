package counter

import (
	"errors"
	"testing"

	"github.com/matheus3301/mailcount/internal/folder"
	"github.com/matheus3301/mailcount/internal/store"
)

// fakeMessages is an in-memory MessageFinder.
type fakeMessages map[string]*store.Message

func (f fakeMessages) FindMessageByID(id string) (*store.Message, error) {
	return f[id], nil
}

// memCounters is an in-memory Store that records every save.
type memCounters struct {
	counts  map[folder.Location]int
	saves   []UnreadLocation
	saveErr error
}

func newMemCounters(seed map[folder.Location]int) *memCounters {
	m := &memCounters{counts: make(map[folder.Location]int)}
	for k, v := range seed {
		m.counts[k] = v
	}
	return m
}

func (m *memCounters) FindUnreadLocation(loc folder.Location) (*UnreadLocation, error) {
	n, ok := m.counts[loc]
	if !ok {
		return nil, nil
	}
	return &UnreadLocation{Location: loc, Count: n}, nil
}

func (m *memCounters) SaveUnreadLocation(u *UnreadLocation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.counts[u.Location] = u.Count
	m.saves = append(m.saves, *u)
	return nil
}

func TestReconcileScenario(t *testing.T) {
	msgs := fakeMessages{
		"m1": {ID: "m1", Location: folder.Inbox},
		"m2": {ID: "m2", Location: folder.Inbox, IsRead: true},
		"m3": {ID: "m3", Location: folder.Archive},
	}
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 5, folder.Archive: 2})

	res, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"m1", "m2", "m3"}, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}

	if got := counters.counts[folder.Inbox]; got != 4 {
		t.Errorf("inbox = %d, want 4", got)
	}
	if got := counters.counts[folder.Archive]; got != 3 {
		t.Errorf("archive = %d, want 3", got)
	}
	if res.TotalUnread != 2 {
		t.Errorf("TotalUnread = %d, want 2", res.TotalUnread)
	}
	if !res.Refreshed || res.SourceCount != 4 {
		t.Errorf("result = %+v, want refreshed with source count 4", res)
	}
	if res.Incremented[folder.Inbox] != 1 || res.Incremented[folder.Archive] != 1 {
		t.Errorf("Incremented = %v, want inbox=1 archive=1", res.Incremented)
	}
	// Two per-message increments and one source decrement.
	if len(counters.saves) != 3 {
		t.Errorf("saves = %d, want 3", len(counters.saves))
	}
}

func TestReconcileEmptyIDs(t *testing.T) {
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 5})

	res, err := NewReconciler(fakeMessages{}, nil).Reconcile(counters, nil, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalUnread != 0 {
		t.Errorf("TotalUnread = %d, want 0", res.TotalUnread)
	}
	if got := counters.counts[folder.Inbox]; got != 5 {
		t.Errorf("inbox = %d, want 5", got)
	}
}

func TestReconcileSkipsUnknownMessages(t *testing.T) {
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 5, folder.Archive: 1})

	res, err := NewReconciler(fakeMessages{}, nil).Reconcile(counters, []string{"ghost-1", "ghost-2"}, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalUnread != 0 || len(res.Incremented) != 0 {
		t.Errorf("result = %+v, want no contribution", res)
	}
	if counters.counts[folder.Inbox] != 5 || counters.counts[folder.Archive] != 1 {
		t.Errorf("counts = %v, want unchanged", counters.counts)
	}
}

func TestReconcileReadMessagesDoNotCount(t *testing.T) {
	msgs := fakeMessages{
		"r1": {ID: "r1", Location: folder.Archive, IsRead: true},
		"r2": {ID: "r2", Location: folder.Inbox, IsRead: true},
	}
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 3, folder.Archive: 3})

	res, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"r1", "r2"}, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalUnread != 0 {
		t.Errorf("TotalUnread = %d, want 0", res.TotalUnread)
	}
	if counters.counts[folder.Archive] != 3 || counters.counts[folder.Inbox] != 3 {
		t.Errorf("counts = %v, want unchanged", counters.counts)
	}
}

func TestReconcileUnreadWithoutFolderCounter(t *testing.T) {
	msgs := fakeMessages{
		"u1": {ID: "u1", Location: folder.Spam},
		"u2": {ID: "u2", Location: folder.Spam},
	}
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 10})

	_, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"u1", "u2"}, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}
	// No counter is created for spam, but the decrement still uses both.
	if _, ok := counters.counts[folder.Spam]; ok {
		t.Error("spam counter must not be created")
	}
	if counters.counts[folder.Inbox] != 8 {
		t.Errorf("inbox = %d, want 8", counters.counts[folder.Inbox])
	}
}

func TestReconcileDecrementEqualsUnreadNotIDs(t *testing.T) {
	msgs := fakeMessages{
		"a": {ID: "a", Location: folder.Trash},
		"b": {ID: "b", Location: folder.Trash, IsRead: true},
	}
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 10, folder.Trash: 0})

	_, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"a", "b", "missing"}, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}
	if counters.counts[folder.Inbox] != 9 {
		t.Errorf("inbox = %d, want 9", counters.counts[folder.Inbox])
	}
	if counters.counts[folder.Trash] != 1 {
		t.Errorf("trash = %d, want 1", counters.counts[folder.Trash])
	}
}

func TestReconcileMissingSourceCounter(t *testing.T) {
	msgs := fakeMessages{"m1": {ID: "m1", Location: folder.Archive}}
	counters := newMemCounters(map[folder.Location]int{folder.Archive: 2})

	res, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"m1"}, folder.Inbox)
	if err != nil {
		t.Fatalf("missing source counter must not be an error: %v", err)
	}
	if res.Refreshed {
		t.Error("Refreshed = true, want false without a source counter")
	}
	if _, ok := counters.counts[folder.Inbox]; ok {
		t.Error("source counter must not be created")
	}
	// The per-message increment still happened; only the decrement is skipped.
	if len(counters.saves) != 1 || counters.counts[folder.Archive] != 3 {
		t.Errorf("saves = %v, want only the archive increment", counters.saves)
	}
}

func TestReconcileSourceNeverNegative(t *testing.T) {
	msgs := fakeMessages{
		"a": {ID: "a", Location: folder.Archive},
		"b": {ID: "b", Location: folder.Archive},
		"c": {ID: "c", Location: folder.Archive},
	}
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 1})

	res, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"a", "b", "c"}, folder.Inbox)
	if err != nil {
		t.Fatal(err)
	}
	if res.SourceCount != 0 || counters.counts[folder.Inbox] != 0 {
		t.Errorf("inbox = %d, want 0", counters.counts[folder.Inbox])
	}
}

func TestReconcileSameLocationCancelsOut(t *testing.T) {
	msgs := fakeMessages{"m1": {ID: "m1", Location: folder.Inbox}}
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 4})

	if _, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"m1"}, folder.Inbox); err != nil {
		t.Fatal(err)
	}
	if counters.counts[folder.Inbox] != 4 {
		t.Errorf("inbox = %d, want 4", counters.counts[folder.Inbox])
	}
}

func TestReconcileSaveErrorPropagates(t *testing.T) {
	msgs := fakeMessages{"m1": {ID: "m1", Location: folder.Inbox}}
	boom := errors.New("disk full")
	counters := newMemCounters(map[folder.Location]int{folder.Inbox: 4})
	counters.saveErr = boom

	_, err := NewReconciler(msgs, nil).Reconcile(counters, []string{"m1"}, folder.Inbox)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestReconcileWithBoltStore(t *testing.T) {
	s := testBoltStore(t)
	for loc, n := range map[folder.Location]int{folder.Inbox: 5, folder.Archive: 2} {
		if err := s.SaveUnreadLocation(&UnreadLocation{Location: loc, Count: n}); err != nil {
			t.Fatal(err)
		}
	}
	msgs := fakeMessages{
		"m1": {ID: "m1", Location: folder.Inbox},
		"m2": {ID: "m2", Location: folder.Inbox, IsRead: true},
		"m3": {ID: "m3", Location: folder.Archive},
	}

	if _, err := NewReconciler(msgs, nil).Reconcile(s, []string{"m1", "m2", "m3"}, folder.Inbox); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListUnreadLocations()
	if err != nil {
		t.Fatal(err)
	}
	want := []UnreadLocation{{Location: folder.Inbox, Count: 4}, {Location: folder.Archive, Count: 3}}
	if len(list) != 2 || list[0] != want[0] || list[1] != want[1] {
		t.Errorf("counters = %v, want %v", list, want)
	}
}
