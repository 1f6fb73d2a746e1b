package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hrcore.io/internal/ids"
	"hrcore.io/internal/obs"
)

const (
	defaultQueueSize    = 1024
	defaultWriteTimeout = 5 * time.Second
	maxPerPage          = 200
	defaultPerPage      = 50
)

// Recorder enqueues events for asynchronous persistence. Record returns
// before the write lands and never reports an error; persistence failures are
// logged and counted, never retried. One worker drains the queue, so event
// ids and timestamps are assigned in insertion order and a single recorder's
// stream is monotonically non-decreasing.
type Recorder struct {
	store        Store
	queue        chan Event
	writeTimeout time.Duration
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithQueueSize bounds the in-flight event queue.
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan Event, n)
		}
	}
}

// WithWriteTimeout bounds each store append.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithRecorderClock overrides the time source (useful for tests).
func WithRecorderClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder and starts its worker.
func NewRecorder(store Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit: store is required")
	}
	r := &Recorder{
		store:        store,
		queue:        make(chan Event, defaultQueueSize),
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r, nil
}

// Record enqueues an event and returns immediately. It never blocks beyond
// the channel send and never raises: when the queue is full the event is
// dropped, logged, and counted. There are no cancellation semantics; callers
// fire and forget.
func (r *Recorder) Record(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		obs.AuditDropped()
		return
	}
	select {
	case r.queue <- e:
		obs.AuditEnqueued()
		obs.SetAuditQueueDepth(len(r.queue))
	default:
		obs.AuditDropped()
		obs.LogRequest(map[string]any{
			"level":  "warn",
			"msg":    "audit queue full, event dropped",
			"action": e.Action,
			"actor":  e.Actor,
		})
	}
}

// Query returns a page of immutable events matching the filter, ordered by
// timestamp (descending unless Filter.Asc).
func (r *Recorder) Query(ctx context.Context, f Filter) (Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	events, total, err := r.store.Search(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Events: events, Total: total, Number: f.Page, PerPage: f.PerPage}, nil
}

// Close stops accepting events and drains what was already enqueued, bounded
// by the context deadline.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the single persistence worker. Each append gets a fresh detached
// context: audit persistence must not inherit a request's cancellation or
// transaction.
func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		obs.SetAuditQueueDepth(len(r.queue))
		e.ID = ids.New()
		e.Timestamp = r.now().UTC()
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		err := r.store.Append(ctx, &e)
		cancel()
		if err != nil {
			obs.AuditPersistFailed()
			obs.LogRequest(map[string]any{
				"level":  "error",
				"msg":    "audit append failed",
				"action": e.Action,
				"actor":  e.Actor,
				"error":  err.Error(),
			})
		}
	}
}
