// Package jobs runs bulk message operations and repairs the unread counters
// when one of them is cancelled before it finishes.
package jobs

import (
	"fmt"

	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/folder"
	"github.com/matheus3301/mailcount/internal/notify"
	"go.uber.org/zap"
)

// Policy supplies the messages a counter job covers and the location the
// operation was started from.
type Policy interface {
	MessageIDs() []string
	MessageLocation() folder.Location
}

// CancelReason says why a job stopped early.
type CancelReason int

const (
	ReasonUser CancelReason = iota
	ReasonShutdown
	ReasonFailed
)

func (r CancelReason) String() string {
	switch r {
	case ReasonUser:
		return "user"
	case ReasonShutdown:
		return "shutdown"
	case ReasonFailed:
		return "failed"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// CounterJob is the cancellation side of a batch job: it reconciles the
// counters of the policy's messages against the account's counter store.
type CounterJob struct {
	policy     Policy
	reconciler *counter.Reconciler
	counters   counter.Store
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewCounterJob composes a policy with the reconciler and the account's
// counter store. dispatcher may be nil.
func NewCounterJob(p Policy, r *counter.Reconciler, counters counter.Store, d *notify.Dispatcher, logger *zap.Logger) *CounterJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CounterJob{policy: p, reconciler: r, counters: counters, dispatcher: d, logger: logger}
}

// OnCancel reconciles the counters and, when the source counter was
// updated, tells observers that counts changed.
func (j *CounterJob) OnCancel(reason CancelReason, cause error) (*counter.Result, error) {
	j.logger.Info("batch job cancelled, reconciling counters",
		zap.Stringer("reason", reason),
		zap.Stringer("location", j.policy.MessageLocation()),
		zap.NamedError("cause", cause))

	res, err := j.reconciler.Reconcile(j.counters, j.policy.MessageIDs(), j.policy.MessageLocation())
	if err != nil {
		return res, fmt.Errorf("reconcile counters: %w", err)
	}
	if res.Refreshed && j.dispatcher != nil {
		j.dispatcher.Publish(notify.NewEvent(notify.KindCountersRefreshed, *res))
	}
	return res, nil
}
