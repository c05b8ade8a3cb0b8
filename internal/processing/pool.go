package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"wizqueue/internal/logging"
	"wizqueue/internal/services"
)

type entry struct {
	task      Task
	state     TaskState
	startedAt time.Time
	cancelled bool
	ctx       context.Context
	cancel    context.CancelCauseFunc
	done      func(error)
}

// SubmitOption customizes one submission.
type SubmitOption func(*entry)

// OnDone registers a callback invoked exactly once with the task result.
// Tasks still queued when the pool stops receive ErrStopped.
func OnDone(fn func(error)) SubmitOption {
	return func(e *entry) {
		e.done = fn
	}
}

// Pool is a bounded worker pool keyed by invoice ID.
type Pool struct {
	handler Handler
	logger  *slog.Logger
	workers int

	mu      sync.Mutex
	queue   chan *entry
	entries map[int64]*entry
	running bool
	ctx     context.Context
	cancel  context.CancelCauseFunc
	wg      sync.WaitGroup
}

// NewPool builds a stopped pool. workers and queueSize below 1 become 1.
func NewPool(workers, queueSize int, handler Handler, logger *slog.Logger) *Pool {
	return &Pool{
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "processing"),
		workers: max(workers, 1),
		queue:   make(chan *entry, max(queueSize, 1)),
		entries: make(map[int64]*entry),
	}
}

// Workers returns the worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers. Tasks run under contexts derived from ctx.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("processing pool already running")
	}
	p.ctx, p.cancel = context.WithCancelCause(ctx)
	p.running = true
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i + 1)
	}
	p.logger.Info("processing pool started",
		logging.Int("workers", p.workers),
		logging.Int("queue_size", cap(p.queue)),
	)
	return nil
}

// Submit queues task without blocking.
func (p *Pool) Submit(task Task, opts ...SubmitOption) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now().UTC()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrStopped
	}
	if _, exists := p.entries[task.InvoiceID]; exists {
		return fmt.Errorf("invoice %d: %w", task.InvoiceID, ErrAlreadyQueued)
	}

	e := &entry{task: task, state: TaskQueued}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx, e.cancel = context.WithCancelCause(p.ctx)

	select {
	case p.queue <- e:
		p.entries[task.InvoiceID] = e
		return nil
	default:
		e.cancel(ErrQueueFull)
		return ErrQueueFull
	}
}

// Cancel aborts the task for invoiceID. It reports false when no such task
// is queued or running.
func (p *Pool) Cancel(invoiceID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[invoiceID]
	if !ok {
		return false
	}
	e.cancelled = true
	e.cancel(ErrCancelled)
	return true
}

// InFlight reports whether invoiceID is queued or running.
func (p *Pool) InFlight(invoiceID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[invoiceID]
	return ok
}

// Snapshot lists queued and running tasks, oldest submission first.
func (p *Pool) Snapshot() []TaskInfo {
	p.mu.Lock()
	out := make([]TaskInfo, 0, len(p.entries))
	for _, e := range p.entries {
		info := TaskInfo{
			InvoiceID:   e.task.InvoiceID,
			FilePath:    e.task.FilePath,
			State:       e.state,
			SubmittedAt: e.task.SubmittedAt,
			Cancelled:   e.cancelled,
		}
		if !e.startedAt.IsZero() {
			started := e.startedAt
			info.StartedAt = &started
		}
		out = append(out, info)
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].InvoiceID < out[j].InvoiceID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// Stop cancels in-flight work, waits for the workers and releases tasks that
// never started. It returns ctx.Err() if the workers outlive ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel(ErrStopped)
	p.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case e := <-p.queue:
			p.finish(e, ErrStopped)
		default:
			p.logger.Info("processing pool stopped")
			return nil
		}
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int("worker", id))
	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-p.queue:
			if IsShutdown(e.ctx) {
				p.finish(e, ErrStopped)
				continue
			}
			p.run(logger, e)
		}
	}
}

func (p *Pool) run(logger *slog.Logger, e *entry) {
	p.mu.Lock()
	e.state = TaskRunning
	e.startedAt = time.Now().UTC()
	p.mu.Unlock()

	logger = logger.With(logging.Int64(logging.FieldInvoiceID, e.task.InvoiceID))
	logger.Debug("task started", logging.Duration("queued_for", e.startedAt.Sub(e.task.SubmittedAt)))

	err := p.invoke(services.WithInvoiceID(e.ctx, e.task.InvoiceID), e.task)
	switch {
	case err == nil:
		logger.Info("task finished", logging.Duration("elapsed", time.Since(e.startedAt)))
	case IsShutdown(e.ctx):
		logger.Info("task interrupted by shutdown")
	default:
		logger.Warn("task failed", logging.Error(err), logging.Duration("elapsed", time.Since(e.startedAt)))
	}
	p.finish(e, err)
}

func (p *Pool) invoke(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				logging.Int64(logging.FieldInvoiceID, task.InvoiceID),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: task panicked: %v", services.ErrInternal, r)
		}
	}()
	return p.handler(ctx, task)
}

func (p *Pool) finish(e *entry, err error) {
	p.mu.Lock()
	if current, ok := p.entries[e.task.InvoiceID]; ok && current == e {
		delete(p.entries, e.task.InvoiceID)
	}
	p.mu.Unlock()
	e.cancel(context.Canceled)
	if e.done != nil {
		e.done(err)
	}
}
