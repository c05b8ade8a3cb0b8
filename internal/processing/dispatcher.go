package processing

import (
	"context"
	"log/slog"

	"wizqueue/internal/invoice"
	"wizqueue/internal/logging"
)

// Dispatcher hands a task to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
	Close() error
}

// PoolDispatcher submits straight to an in-process pool.
type PoolDispatcher struct {
	pool *Pool
}

// NewPoolDispatcher wraps pool.
func NewPoolDispatcher(pool *Pool) *PoolDispatcher {
	return &PoolDispatcher{pool: pool}
}

// Dispatch implements Dispatcher.
func (d *PoolDispatcher) Dispatch(_ context.Context, task Task) error {
	return d.pool.Submit(task)
}

// Close implements Dispatcher; the pool is stopped by its owner.
func (d *PoolDispatcher) Close() error {
	return nil
}

// PendingLister returns invoices with no recorded outcome.
type PendingLister interface {
	ListPending(ctx context.Context) ([]*invoice.Invoice, error)
}

// Resubmit dispatches every pending invoice, typically once at startup after
// an unclean shutdown. Invoices that cannot be dispatched stay pending and
// are reported in the log; the count of dispatched tasks is returned.
func Resubmit(ctx context.Context, invoices PendingLister, dispatcher Dispatcher, logger *slog.Logger) (int, error) {
	logger = logging.NewComponentLogger(logger, "processing")
	pending, err := invoices.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	dispatched := 0
	for _, inv := range pending {
		err := dispatcher.Dispatch(ctx, Task{
			InvoiceID:   inv.ID,
			FilePath:    inv.FilePath,
			SubmittedAt: inv.UploadDate,
		})
		if err != nil {
			logger.Warn("resubmit pending invoice failed",
				logging.Int64(logging.FieldInvoiceID, inv.ID),
				logging.Error(err),
			)
			continue
		}
		dispatched++
	}
	if len(pending) > 0 {
		logger.Info("pending invoices resubmitted",
			logging.Int("pending", len(pending)),
			logging.Int("dispatched", dispatched),
		)
	}
	return dispatched, nil
}
