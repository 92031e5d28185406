// Package dispatcher schedules page descriptors over a bounded set of
// concurrent handlers and reports when the crawl has drained.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/metrics"
	"github.com/benangmerah/sekolah/internal/queue/memory"
)

// Handler processes one descriptor. New work must be submitted before
// Handle returns. A returned error aborts the whole run.
type Handler interface {
	Handle(ctx context.Context, page crawler.PageDescriptor) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, page crawler.PageDescriptor) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, page crawler.PageDescriptor) error {
	return f(ctx, page)
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Pending   int `json:"pending"`
	InFlight  int `json:"in_flight"`
	Completed int `json:"completed"`
}

// Dispatcher runs at most threshold handlers at once.
type Dispatcher struct {
	threshold int
	handler   Handler
	logger    *zap.Logger
	queue     *memory.Queue
	wake      chan struct{}

	mu        sync.Mutex
	inFlight  int
	completed int
}

// New creates a Dispatcher. A threshold below one is treated as one.
func New(threshold int, handler Handler, logger *zap.Logger) *Dispatcher {
	if threshold < 1 {
		threshold = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		threshold: threshold,
		handler:   handler,
		logger:    logger,
		queue:     memory.NewQueue(),
		wake:      make(chan struct{}, 1),
	}
}

// Submit queues page for processing. It is safe to call from any goroutine,
// before or during Run.
func (d *Dispatcher) Submit(page crawler.PageDescriptor) {
	d.queue.Push(page)
	d.signal()
}

// Run dispatches queued descriptors until none are pending and none are
// running, then returns nil. It returns the first handler error, or the
// context error if ctx ends before the crawl drains.
func (d *Dispatcher) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(d.threshold)

	for gctx.Err() == nil {
		page, ok := d.next()
		if ok {
			group.Go(func() error {
				defer d.done()
				metrics.IncInFlight()
				defer metrics.DecInFlight()
				if err := d.handler.Handle(gctx, page); err != nil {
					return fmt.Errorf("handle %s: %w", page.URL, err)
				}
				return nil
			})
			continue
		}
		if d.idle() {
			break
		}
		select {
		case <-d.wake:
		case <-gctx.Done():
		}
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	stats := d.Stats()
	d.logger.Info("crawl queue drained", zap.Int("completed", stats.Completed))
	return nil
}

// Stats reports the pending, running and completed descriptor counts.
func (d *Dispatcher) Stats() Stats {
	pending := d.queue.Len()
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Pending: pending, InFlight: d.inFlight, Completed: d.completed}
}

// next pops a descriptor and counts it as in flight in one step, so that a
// dispatched but not yet started handler keeps the crawl from draining.
func (d *Dispatcher) next() (crawler.PageDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	page, ok := d.queue.Pop()
	if ok {
		d.inFlight++
	}
	return page, ok
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	d.inFlight--
	d.completed++
	d.mu.Unlock()
	d.signal()
}

func (d *Dispatcher) idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight == 0 && d.queue.Len() == 0
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}
