package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wizqueue/internal/services"
)

var (
	// ErrQueueFull reports that the pool cannot accept more work right now.
	ErrQueueFull = fmt.Errorf("%w: processing queue is full", services.ErrUnavailable)
	// ErrStopped reports a pool that is not running or is shutting down.
	ErrStopped = fmt.Errorf("%w: processing is shutting down", services.ErrUnavailable)
	// ErrAlreadyQueued reports a second submission for an invoice in flight.
	ErrAlreadyQueued = errors.New("invoice already queued")
	// ErrCancelled is the cancellation cause for operator-cancelled tasks.
	ErrCancelled = errors.New("processing cancelled")
)

// Task identifies one invoice to process. It is also the broker message body.
type Task struct {
	InvoiceID   int64     `json:"invoiceId"`
	FilePath    string    `json:"filePath"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Validate checks the fields a worker needs.
func (t Task) Validate() error {
	if t.InvoiceID <= 0 {
		return services.Validationf("task invoiceId must be positive")
	}
	if t.FilePath == "" {
		return services.Validationf("task filePath is required")
	}
	return nil
}

// Handler executes a task. The context is cancelled when the task is
// cancelled or the pool stops; context.Cause tells the two apart.
type Handler func(ctx context.Context, task Task) error

// TaskState is the in-memory state of a submitted task.
type TaskState string

const (
	TaskQueued  TaskState = "queued"
	TaskRunning TaskState = "running"
)

// TaskInfo is a point-in-time view of one task.
type TaskInfo struct {
	InvoiceID   int64      `json:"invoiceId"`
	FilePath    string     `json:"filePath"`
	State       TaskState  `json:"state"`
	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	Cancelled   bool       `json:"cancelled"`
}

// IsShutdown reports whether ctx was cancelled because the pool stopped.
func IsShutdown(ctx context.Context) bool {
	return ctx.Err() != nil && errors.Is(context.Cause(ctx), ErrStopped)
}
