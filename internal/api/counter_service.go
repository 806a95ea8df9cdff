package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/jobs"
	"github.com/matheus3301/mailcount/internal/notify"
	"github.com/matheus3301/mailcount/internal/status"
	"github.com/matheus3301/mailcount/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// CounterStore is the account counter database as the service sees it.
type CounterStore interface {
	counter.Store
	ListUnreadLocations() ([]counter.UnreadLocation, error)
}

// CounterService implements mailcount.v1.CounterService.
type CounterService struct {
	account    string
	machine    *status.Machine
	db         *store.DB
	counters   CounterStore
	reconciler *counter.Reconciler
	queue      *jobs.Queue
	dispatcher *notify.Dispatcher
	logger     *zap.Logger

	rebuilds singleflight.Group
}

// watchInterval bounds how often one stream re-reads the counter store.
const watchInterval = 100 * time.Millisecond

// NewCounterService creates the counter service for one account.
func NewCounterService(
	account string,
	m *status.Machine,
	db *store.DB,
	counters CounterStore,
	r *counter.Reconciler,
	q *jobs.Queue,
	d *notify.Dispatcher,
	logger *zap.Logger,
) *CounterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CounterService{
		account:    account,
		machine:    m,
		db:         db,
		counters:   counters,
		reconciler: r,
		queue:      q,
		dispatcher: d,
		logger:     logger,
	}
}

func (s *CounterService) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]any{
		"account":     s.account,
		"state":       string(s.machine.Current()),
		"uptime_ms":   s.machine.Uptime().Milliseconds(),
		"pid":         os.Getpid(),
		"subscribers": s.dispatcher.Subscribers(),
	})
}

func (s *CounterService) ListCounters(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	list, err := s.counters.ListUnreadLocations()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list counters: %v", err)
	}
	return toStruct(map[string]any{"counters": countersList(list)})
}

func (s *CounterService) SeedCounters(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	locs, err := locationsField(in, "locations")
	if err != nil {
		return nil, err
	}
	created, err := counter.Seed(s.counters, locs)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "seed counters: %v", err)
	}
	if len(created) > 0 {
		s.dispatcher.Publish(notify.NewEvent(notify.KindCountersRefreshed, nil))
	}
	return toStruct(map[string]any{"created": locationNames(created)})
}

func (s *CounterService) RebuildCounters(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	locs, err := locationsField(in, "locations")
	if err != nil {
		return nil, err
	}
	// Concurrent rebuilds of the same locations share one pass over the cache.
	_, err, shared := s.rebuilds.Do(fmt.Sprint(locs), func() (any, error) {
		counts, err := counter.Rebuild(s.counters, s.db, locs)
		if err != nil {
			return nil, err
		}
		s.logger.Info("counters rebuilt from message cache", zap.Int("locations", len(locs)))
		s.dispatcher.Publish(notify.NewEvent(notify.KindCountersRefreshed, nil))
		return counts, nil
	})
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "rebuild counters: %v", err)
	}
	if shared {
		s.logger.Debug("rebuild result shared with a concurrent caller")
	}
	return s.ListCounters(context.Background(), nil)
}

func (s *CounterService) Reconcile(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	source, err := locationField(in, "source")
	if err != nil {
		return nil, err
	}
	res, err := s.reconciler.Reconcile(s.counters, stringsField(in, "message_ids"), source)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "reconcile: %v", err)
	}
	if res.Refreshed {
		s.dispatcher.Publish(notify.NewEvent(notify.KindCountersRefreshed, *res))
	}
	return toStruct(map[string]any{
		"total_unread": res.TotalUnread,
		"refreshed":    res.Refreshed,
		"source_count": res.SourceCount,
	})
}

func (s *CounterService) SubmitBatch(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	action, err := jobs.ParseAction(stringField(in, "action"))
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	source, err := locationField(in, "source")
	if err != nil {
		return nil, err
	}
	b := jobs.Batch{Action: action, IDs: stringsField(in, "message_ids"), Source: source}
	if action == jobs.ActionMove {
		if b.Destination, err = locationField(in, "destination"); err != nil {
			return nil, err
		}
	}

	id, err := s.queue.Submit(b)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		return nil, grpcstatus.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, jobs.ErrNotRunning):
		return nil, grpcstatus.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	return toStruct(map[string]any{"job_id": id})
}

func (s *CounterService) CancelJob(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, "job_id")
	ok, err := s.queue.Cancel(id)
	if errors.Is(err, jobs.ErrUnknownJob) {
		return nil, grpcstatus.Errorf(codes.NotFound, "job %q not found", id)
	}
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "cancel job: %v", err)
	}
	return toStruct(map[string]any{"job_id": id, "cancelled": ok})
}

func (s *CounterService) JobStatus(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, "job_id")
	st, err := s.queue.Status(id)
	if errors.Is(err, jobs.ErrUnknownJob) {
		return nil, grpcstatus.Errorf(codes.NotFound, "job %q not found", id)
	}
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "job status: %v", err)
	}
	return toStruct(map[string]any{"job_id": id, "state": string(st)})
}

// WatchCounters streams the full counter list each time counters change.
// Bursts of events are coalesced into one message carrying the latest one.
func (s *CounterService) WatchCounters(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch, unsub := s.dispatcher.Subscribe("counters.", 64)
	defer unsub()

	limiter := rate.NewLimiter(rate.Every(watchInterval), 1)
	for {
		select {
		case evt := <-ch:
			if err := limiter.Wait(stream.Context()); err != nil {
				return nil
			}
			evt = latest(ch, evt)
			list, err := s.counters.ListUnreadLocations()
			if err != nil {
				return grpcstatus.Errorf(codes.Internal, "list counters: %v", err)
			}
			msg, err := toStruct(map[string]any{
				"event_id":            evt.ID,
				"kind":                evt.Kind,
				"occurred_at_unix_ms": evt.Timestamp.UnixMilli(),
				"counters":            countersList(list),
			})
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

// latest drains whatever is already buffered and returns the newest event.
func latest(ch <-chan notify.Event, evt notify.Event) notify.Event {
	for {
		select {
		case next := <-ch:
			evt = next
		default:
			return evt
		}
	}
}
