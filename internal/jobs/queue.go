package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/notify"
	"go.uber.org/zap"
)

var (
	// ErrUnknownJob is returned for a job ID the queue never saw or has
	// already forgotten.
	ErrUnknownJob = errors.New("unknown job")
	// ErrNotRunning is returned by Submit before Start or after Stop.
	ErrNotRunning = errors.New("job queue not running")
	// ErrQueueFull is returned when the pending buffer is exhausted.
	ErrQueueFull = errors.New("job queue full")

	errCancelledByUser = errors.New("cancelled by user")
	errShutdown        = errors.New("queue shutting down")
)

// State is a job's position in its lifecycle.
type State string

const (
	Queued    State = "QUEUED"
	Running   State = "RUNNING"
	Completed State = "COMPLETED"
	Cancelled State = "CANCELLED"
)

// Report describes a finished job. It is the payload of jobs.* events.
type Report struct {
	ID      string
	Action  Action
	State   State
	Applied int
	Reason  string
	Result  *counter.Result
}

type job struct {
	id     string
	batch  Batch
	ctx    context.Context
	cancel context.CancelCauseFunc
	state  State
	ended  time.Time
}

// DefaultRetention is how long a finished job stays visible to Status.
const DefaultRetention = 15 * time.Minute

// Queue applies submitted batches one at a time on a single worker.
type Queue struct {
	db         MessageStore
	counters   counter.Store
	reconciler *counter.Reconciler
	dispatcher *notify.Dispatcher
	logger     *zap.Logger

	pending   chan *job
	retention time.Duration

	mu      sync.Mutex
	jobs    map[string]*job
	ctx     context.Context
	stop    context.CancelCauseFunc
	done    chan struct{}
	running bool
}

// NewQueue creates a queue with room for size pending jobs.
func NewQueue(db MessageStore, counters counter.Store, r *counter.Reconciler, d *notify.Dispatcher, logger *zap.Logger, size int) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 64
	}
	return &Queue{
		db:         db,
		counters:   counters,
		reconciler: r,
		dispatcher: d,
		logger:     logger,
		pending:    make(chan *job, size),
		retention:  DefaultRetention,
		jobs:       make(map[string]*job),
	}
}

// Start launches the worker.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.stop = context.WithCancelCause(ctx)
	q.done = make(chan struct{})
	q.running = true
	go q.loop(q.ctx, q.done)
}

// Stop cancels the running job and every queued one, reconciling each, and
// waits for the worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.stop(errShutdown)
	done := q.done
	q.mu.Unlock()

	<-done
	for {
		select {
		case j := <-q.pending:
			q.finishCancelled(j, 0)
		default:
			return
		}
	}
}

// Submit validates and enqueues a batch, returning its job ID.
func (q *Queue) Submit(b Batch) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return "", ErrNotRunning
	}
	q.prune(time.Now())

	ctx, cancel := context.WithCancelCause(q.ctx)
	j := &job{id: uuid.NewString(), batch: b, ctx: ctx, cancel: cancel, state: Queued}
	select {
	case q.pending <- j:
	default:
		cancel(nil)
		return "", ErrQueueFull
	}
	q.jobs[j.id] = j
	q.logger.Info("batch job queued",
		zap.String("job_id", j.id),
		zap.String("action", string(b.Action)),
		zap.Int("messages", len(b.IDs)))
	return j.id, nil
}

// Cancel requests cancellation of a queued or running job. It reports
// false if the job already finished.
func (q *Queue) Cancel(id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return false, ErrUnknownJob
	}
	if j.state == Completed || j.state == Cancelled {
		return false, nil
	}
	j.cancel(errCancelledByUser)
	return true, nil
}

// Status returns the state of a job.
func (q *Queue) Status(id string) (State, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return "", ErrUnknownJob
	}
	return j.state, nil
}

func (q *Queue) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case j := <-q.pending:
			q.run(j)
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) setState(j *job, s State) {
	q.mu.Lock()
	j.state = s
	if s == Completed || s == Cancelled {
		j.ended = time.Now()
	}
	q.mu.Unlock()
}

// prune forgets jobs that finished more than the retention window ago.
// Callers hold q.mu.
func (q *Queue) prune(now time.Time) {
	for id, j := range q.jobs {
		if !j.ended.IsZero() && now.Sub(j.ended) >= q.retention {
			delete(q.jobs, id)
		}
	}
}

func (q *Queue) run(j *job) {
	if j.ctx.Err() != nil {
		q.finishCancelled(j, 0)
		return
	}
	q.setState(j, Running)

	applied := 0
	countersChanged := false
	for _, id := range j.batch.IDs {
		if j.ctx.Err() != nil {
			q.finishCancelled(j, applied)
			return
		}
		changed, err := j.batch.apply(q.db, q.counters, id)
		if err != nil {
			q.logger.Error("batch job failed", zap.String("job_id", j.id), zap.Error(err))
			j.cancel(err)
			q.finishCancelled(j, applied)
			return
		}
		applied++
		countersChanged = countersChanged || changed
	}

	q.setState(j, Completed)
	j.cancel(nil)
	report := Report{ID: j.id, Action: j.batch.Action, State: Completed, Applied: applied}
	q.logger.Info("batch job completed", zap.String("job_id", j.id), zap.Int("applied", applied))
	q.publish(notify.KindJobCompleted, report)
	if countersChanged {
		q.publish(notify.KindCountersRefreshed, nil)
	}
}

func (q *Queue) finishCancelled(j *job, applied int) {
	cause := context.Cause(j.ctx)
	reason := ReasonFailed
	switch {
	case errors.Is(cause, errCancelledByUser):
		reason = ReasonUser
	case errors.Is(cause, errShutdown), errors.Is(cause, context.Canceled):
		reason = ReasonShutdown
	}

	// Messages already applied moved their counters with them; only the
	// remainder still in Source is reconciled.
	rest := j.batch
	ids, err := j.batch.pending(q.db, j.batch.IDs[applied:])
	if err != nil {
		q.logger.Error("resolve unapplied messages", zap.String("job_id", j.id), zap.Error(err))
	}
	rest.IDs = ids
	cj := NewCounterJob(rest, q.reconciler, q.counters, q.dispatcher, q.logger.With(zap.String("job_id", j.id)))
	res, err := cj.OnCancel(reason, cause)
	if err != nil {
		q.logger.Error("counter reconciliation failed", zap.String("job_id", j.id), zap.Error(err))
	}

	q.setState(j, Cancelled)
	j.cancel(nil)
	q.publish(notify.KindJobCancelled, Report{
		ID:      j.id,
		Action:  j.batch.Action,
		State:   Cancelled,
		Applied: applied,
		Reason:  fmt.Sprintf("%s: %v", reason, cause),
		Result:  res,
	})
}

func (q *Queue) publish(kind string, payload any) {
	if q.dispatcher == nil {
		return
	}
	q.dispatcher.Publish(notify.NewEvent(kind, payload))
}
