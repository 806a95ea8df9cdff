package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/folder"
	"github.com/matheus3301/mailcount/internal/notify"
	"github.com/matheus3301/mailcount/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "mail.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testCounters(t *testing.T, seed map[folder.Location]int) *counter.BoltStore {
	t.Helper()
	s, err := counter.OpenBoltStore(filepath.Join(t.TempDir(), "counters.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	for loc, n := range seed {
		if err := s.SaveUnreadLocation(&counter.UnreadLocation{Location: loc, Count: n}); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func putMessages(t *testing.T, db *store.DB, msgs ...store.Message) {
	t.Helper()
	for i := range msgs {
		if err := db.UpsertMessage(&msgs[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func count(t *testing.T, s counter.Store, loc folder.Location) int {
	t.Helper()
	c, err := s.FindUnreadLocation(loc)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		return -1
	}
	return c.Count
}

func waitEvent(t *testing.T, ch <-chan notify.Event, kind string) notify.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Kind == kind {
				return evt
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s", kind)
		}
	}
}

func TestCounterJobOnCancel(t *testing.T) {
	db := testDB(t)
	putMessages(t, db,
		store.Message{ID: "m1", Location: folder.Inbox},
		store.Message{ID: "m2", Location: folder.Inbox, IsRead: true},
		store.Message{ID: "m3", Location: folder.Archive},
	)
	counters := testCounters(t, map[folder.Location]int{folder.Inbox: 5, folder.Archive: 2})
	d := notify.NewDispatcher()
	ch, unsub := d.Subscribe("counters.", 4)
	defer unsub()

	batch := Batch{Action: ActionMove, IDs: []string{"m1", "m2", "m3"}, Source: folder.Inbox, Destination: folder.Trash}
	cj := NewCounterJob(batch, counter.NewReconciler(db, nil), counters, d, nil)

	res, err := cj.OnCancel(ReasonUser, errors.New("user pressed undo"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Refreshed || res.TotalUnread != 2 {
		t.Errorf("result = %+v, want refreshed with 2 unread", res)
	}
	if got := count(t, counters, folder.Inbox); got != 4 {
		t.Errorf("inbox = %d, want 4", got)
	}
	if got := count(t, counters, folder.Archive); got != 3 {
		t.Errorf("archive = %d, want 3", got)
	}
	evt := waitEvent(t, ch, notify.KindCountersRefreshed)
	if r, ok := evt.Payload.(counter.Result); !ok || r.SourceCount != 4 {
		t.Errorf("payload = %#v, want Result with source count 4", evt.Payload)
	}
}

func TestCounterJobWithoutSourceCounterIsSilent(t *testing.T) {
	db := testDB(t)
	putMessages(t, db, store.Message{ID: "m1", Location: folder.Inbox})
	counters := testCounters(t, nil)
	d := notify.NewDispatcher()
	ch, unsub := d.Subscribe("", 4)
	defer unsub()

	cj := NewCounterJob(Batch{Action: ActionRead, IDs: []string{"m1"}, Source: folder.Starred}, counter.NewReconciler(db, nil), counters, d, nil)
	res, err := cj.OnCancel(ReasonShutdown, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Refreshed {
		t.Error("Refreshed = true, want false")
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		batch   Batch
		wantErr string
	}{
		{"ok read", Batch{Action: ActionRead, IDs: []string{"a"}, Source: folder.Inbox}, ""},
		{"ok move", Batch{Action: ActionMove, IDs: []string{"a"}, Source: folder.Inbox, Destination: folder.Archive}, ""},
		{"bad action", Batch{Action: "star", IDs: []string{"a"}}, "unknown action"},
		{"no ids", Batch{Action: ActionRead, Source: folder.Inbox}, "no message ids"},
		{"bad source", Batch{Action: ActionRead, IDs: []string{"a"}, Source: 42}, "invalid source"},
		{"bad destination", Batch{Action: ActionMove, IDs: []string{"a"}, Source: folder.Inbox, Destination: folder.Invalid}, "invalid destination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBatchApplyKeepsCountersInStep(t *testing.T) {
	db := testDB(t)
	putMessages(t, db,
		store.Message{ID: "u", Location: folder.Inbox},
		store.Message{ID: "r", Location: folder.Inbox, IsRead: true},
	)
	counters := testCounters(t, map[folder.Location]int{folder.Inbox: 1, folder.Archive: 0})

	move := Batch{Action: ActionMove, IDs: []string{"u", "r"}, Source: folder.Inbox, Destination: folder.Archive}
	for _, id := range move.IDs {
		if _, err := move.apply(db, counters, id); err != nil {
			t.Fatal(err)
		}
	}
	if count(t, counters, folder.Inbox) != 0 || count(t, counters, folder.Archive) != 1 {
		t.Errorf("after move inbox=%d archive=%d, want 0/1", count(t, counters, folder.Inbox), count(t, counters, folder.Archive))
	}

	read := Batch{Action: ActionRead, IDs: []string{"u"}, Source: folder.Archive}
	if _, err := read.apply(db, counters, "u"); err != nil {
		t.Fatal(err)
	}
	if count(t, counters, folder.Archive) != 0 {
		t.Errorf("archive = %d after read, want 0", count(t, counters, folder.Archive))
	}

	unread := Batch{Action: ActionUnread, IDs: []string{"r"}, Source: folder.Archive}
	if _, err := unread.apply(db, counters, "r"); err != nil {
		t.Fatal(err)
	}
	if count(t, counters, folder.Archive) != 1 {
		t.Errorf("archive = %d after unread, want 1", count(t, counters, folder.Archive))
	}

	elsewhere := Batch{Action: ActionRead, IDs: []string{"r"}, Source: folder.Inbox}
	if changed, err := elsewhere.apply(db, counters, "r"); err != nil || changed {
		t.Errorf("apply(outside source) = %v, %v; want false, nil", changed, err)
	}
	if count(t, counters, folder.Archive) != 1 {
		t.Errorf("archive = %d after read outside source, want 1", count(t, counters, folder.Archive))
	}

	changed, err := read.apply(db, counters, "missing")
	if err != nil || changed {
		t.Errorf("apply(missing) = %v, %v; want false, nil", changed, err)
	}
}

// gatedStore blocks the first SetRead or SetLocation until released.
type gatedStore struct {
	*store.DB
	entered chan struct{}
	release chan struct{}
	gated   bool
}

func (g *gatedStore) wait() {
	if !g.gated {
		g.gated = true
		close(g.entered)
		<-g.release
	}
}

func (g *gatedStore) SetRead(id string, read bool) error {
	g.wait()
	return g.DB.SetRead(id, read)
}

func (g *gatedStore) SetLocation(id string, loc folder.Location) error {
	g.wait()
	return g.DB.SetLocation(id, loc)
}

func newQueueFixture(t *testing.T, gate bool) (*Queue, *store.DB, *counter.BoltStore, *notify.Dispatcher, *gatedStore) {
	t.Helper()
	db := testDB(t)
	putMessages(t, db,
		store.Message{ID: "m1", Location: folder.Inbox},
		store.Message{ID: "m2", Location: folder.Inbox},
		store.Message{ID: "m3", Location: folder.Inbox},
	)
	counters := testCounters(t, map[folder.Location]int{folder.Inbox: 3})
	d := notify.NewDispatcher()
	logger, _ := zap.NewDevelopment()

	var ms MessageStore = db
	var g *gatedStore
	if gate {
		g = &gatedStore{DB: db, entered: make(chan struct{}), release: make(chan struct{})}
		ms = g
	}
	q := NewQueue(ms, counters, counter.NewReconciler(db, logger), d, logger, 8)
	return q, db, counters, d, g
}

func TestQueueCompletesBatch(t *testing.T) {
	q, _, counters, d, _ := newQueueFixture(t, false)
	ch, unsub := d.Subscribe("", 16)
	defer unsub()
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1", "m2"}, Source: folder.Inbox})
	if err != nil {
		t.Fatal(err)
	}

	evt := waitEvent(t, ch, notify.KindJobCompleted)
	report := evt.Payload.(Report)
	if report.ID != id || report.Applied != 2 {
		t.Errorf("report = %+v, want job %s with 2 applied", report, id)
	}
	waitEvent(t, ch, notify.KindCountersRefreshed)
	if got := count(t, counters, folder.Inbox); got != 1 {
		t.Errorf("inbox = %d, want 1", got)
	}
	if st, _ := q.Status(id); st != Completed {
		t.Errorf("state = %s, want COMPLETED", st)
	}
	if ok, err := q.Cancel(id); ok || err != nil {
		t.Errorf("Cancel(completed) = %v, %v; want false, nil", ok, err)
	}
}

func TestQueueCancelRunningJobReconciles(t *testing.T) {
	q, _, counters, d, g := newQueueFixture(t, true)
	ch, unsub := d.Subscribe("", 16)
	defer unsub()
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1", "m2", "m3"}, Source: folder.Inbox})
	if err != nil {
		t.Fatal(err)
	}

	<-g.entered
	if st, _ := q.Status(id); st != Running {
		t.Errorf("state = %s, want RUNNING", st)
	}
	ok, err := q.Cancel(id)
	if err != nil || !ok {
		t.Fatalf("Cancel() = %v, %v", ok, err)
	}
	close(g.release)

	evt := waitEvent(t, ch, notify.KindJobCancelled)
	report := evt.Payload.(Report)
	if report.Applied != 1 || !strings.HasPrefix(report.Reason, "user") {
		t.Errorf("report = %+v, want 1 applied, user reason", report)
	}
	if report.Result == nil || report.Result.TotalUnread != 2 {
		t.Fatalf("result = %+v, want 2 unread left", report.Result)
	}
	// m1 read: 3 -> 2. Reconcile credits m2, m3 to inbox (4) then debits 2.
	if got := count(t, counters, folder.Inbox); got != 2 {
		t.Errorf("inbox = %d, want 2", got)
	}
	if st, _ := q.Status(id); st != Cancelled {
		t.Errorf("state = %s, want CANCELLED", st)
	}
}

func TestQueueCancelRunningMoveKeepsCountersExact(t *testing.T) {
	q, _, counters, d, g := newQueueFixture(t, true)
	if err := counters.SaveUnreadLocation(&counter.UnreadLocation{Location: folder.Trash}); err != nil {
		t.Fatal(err)
	}
	ch, unsub := d.Subscribe("jobs.", 16)
	defer unsub()
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit(Batch{Action: ActionMove, IDs: []string{"m1", "m2", "m3"}, Source: folder.Inbox, Destination: folder.Trash})
	if err != nil {
		t.Fatal(err)
	}
	<-g.entered
	if _, err := q.Cancel(id); err != nil {
		t.Fatal(err)
	}
	close(g.release)

	report := waitEvent(t, ch, notify.KindJobCancelled).Payload.(Report)
	if report.Applied != 1 {
		t.Errorf("applied = %d, want 1", report.Applied)
	}
	// m1 moved 3/0 -> 2/1; m2 and m3 never left the inbox.
	if got := count(t, counters, folder.Inbox); got != 2 {
		t.Errorf("inbox = %d, want 2", got)
	}
	if got := count(t, counters, folder.Trash); got != 1 {
		t.Errorf("trash = %d, want 1", got)
	}
}

func TestQueueCancelQueuedJobOutsideSourceKeepsCounters(t *testing.T) {
	q, db, counters, d, g := newQueueFixture(t, true)
	putMessages(t, db, store.Message{ID: "x1", Location: folder.Inbox})
	for loc, n := range map[folder.Location]int{folder.Inbox: 4, folder.AllMail: 4} {
		if err := counters.SaveUnreadLocation(&counter.UnreadLocation{Location: loc, Count: n}); err != nil {
			t.Fatal(err)
		}
	}
	ch, unsub := d.Subscribe("jobs.", 16)
	defer unsub()
	q.Start(context.Background())
	defer q.Stop()

	if _, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1"}, Source: folder.Inbox}); err != nil {
		t.Fatal(err)
	}
	<-g.entered
	queued, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"x1"}, Source: folder.AllMail})
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := q.Cancel(queued); err != nil || !ok {
		t.Fatalf("Cancel(queued) = %v, %v", ok, err)
	}
	close(g.release)

	waitEvent(t, ch, notify.KindJobCompleted)
	report := waitEvent(t, ch, notify.KindJobCancelled).Payload.(Report)
	if report.ID != queued || report.Applied != 0 {
		t.Errorf("report = %+v, want %s with 0 applied", report, queued)
	}

	truth, err := db.CountUnreadByLocation()
	if err != nil {
		t.Fatal(err)
	}
	if got := count(t, counters, folder.Inbox); got != truth[folder.Inbox] {
		t.Errorf("inbox = %d, want %d from the cache", got, truth[folder.Inbox])
	}
	if got := count(t, counters, folder.AllMail); got != 4 {
		t.Errorf("all_mail = %d, want 4", got)
	}
}

func TestQueueForgetsFinishedJobs(t *testing.T) {
	q, _, _, d, _ := newQueueFixture(t, false)
	q.retention = 0
	ch, unsub := d.Subscribe("jobs.", 16)
	defer unsub()
	q.Start(context.Background())
	defer q.Stop()

	first, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1"}, Source: folder.Inbox})
	if err != nil {
		t.Fatal(err)
	}
	waitEvent(t, ch, notify.KindJobCompleted)
	if st, err := q.Status(first); err != nil || st != Completed {
		t.Fatalf("Status(first) = %s, %v; want COMPLETED", st, err)
	}

	if _, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m2"}, Source: folder.Inbox}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Status(first); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Status(first) after prune = %v, want ErrUnknownJob", err)
	}
}

func TestQueueStopCancelsRunningJob(t *testing.T) {
	q, _, _, d, g := newQueueFixture(t, true)
	ch, unsub := d.Subscribe("jobs.", 16)
	defer unsub()
	q.Start(context.Background())

	id, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1", "m2"}, Source: folder.Inbox})
	if err != nil {
		t.Fatal(err)
	}
	<-g.entered
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(g.release)
	}()
	q.Stop()

	evt := waitEvent(t, ch, notify.KindJobCancelled)
	if r := evt.Payload.(Report); !strings.HasPrefix(r.Reason, "shutdown") {
		t.Errorf("reason = %q, want shutdown", r.Reason)
	}
	if st, _ := q.Status(id); st != Cancelled {
		t.Errorf("state = %s, want CANCELLED", st)
	}
	if _, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1"}, Source: folder.Inbox}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Submit after Stop = %v, want ErrNotRunning", err)
	}
}

func TestQueueErrors(t *testing.T) {
	q, _, _, _, _ := newQueueFixture(t, false)

	if _, err := q.Submit(Batch{Action: ActionRead, IDs: []string{"m1"}, Source: folder.Inbox}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Submit before Start = %v, want ErrNotRunning", err)
	}

	q.Start(context.Background())
	defer q.Stop()

	if _, err := q.Submit(Batch{Action: ActionRead}); err == nil {
		t.Error("expected validation error")
	}
	if _, err := q.Cancel("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Cancel(unknown) = %v, want ErrUnknownJob", err)
	}
	if _, err := q.Status("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Status(unknown) = %v, want ErrUnknownJob", err)
	}
}

func TestCancelReasonString(t *testing.T) {
	if ReasonFailed.String() != "failed" || CancelReason(9).String() != "reason(9)" {
		t.Error("unexpected CancelReason strings")
	}
}
