package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wizqueue/internal/archive"
	"wizqueue/internal/extraction"
	"wizqueue/internal/invoice"
	"wizqueue/internal/logging"
	"wizqueue/internal/services"
)

// Extractor turns a stored PDF into products.
type Extractor interface {
	ExtractProductsFromPDF(ctx context.Context, path string) ([]extraction.Product, error)
}

// OutcomeRecorder persists the terminal state of an invoice.
type OutcomeRecorder interface {
	MarkProcessed(ctx context.Context, id int64, products []extraction.Product) error
	MarkFailed(ctx context.Context, id int64, message string) error
}

const cancelledMessage = "Processing cancelled"

// Processor is the task body for invoice extraction.
type Processor struct {
	invoices  OutcomeRecorder
	extractor Extractor
	archiver  archive.Archiver
	logger    *slog.Logger
}

// NewProcessor wires the processor. archiver may be nil.
func NewProcessor(invoices OutcomeRecorder, extractor Extractor, archiver archive.Archiver, logger *slog.Logger) *Processor {
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &Processor{
		invoices:  invoices,
		extractor: extractor,
		archiver:  archiver,
		logger:    logging.NewComponentLogger(logger, "processor"),
	}
}

// Handle implements Handler. Failures are recorded on the invoice and also
// returned so the pool can log them.
func (p *Processor) Handle(ctx context.Context, task Task) (err error) {
	ctx = services.WithInvoiceID(ctx, task.InvoiceID)
	logger := logging.WithContext(ctx, p.logger)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: extraction panicked: %v", services.ErrInternal, r)
			p.record(ctx, logger, task, nil, err)
		}
	}()

	if ctx.Err() != nil {
		return p.interrupted(ctx, logger, task)
	}

	if key, archiveErr := p.archiver.Archive(ctx, task.InvoiceID, task.FilePath); archiveErr != nil {
		logger.Warn("invoice archive failed; continuing",
			logging.Error(archiveErr),
			logging.String("file", task.FilePath),
		)
	} else if key != "" {
		logger.Debug("invoice archived", logging.String("object", key))
	}

	started := time.Now()
	products, extractErr := p.extractor.ExtractProductsFromPDF(ctx, task.FilePath)
	if extractErr != nil && ctx.Err() != nil {
		return p.interrupted(ctx, logger, task)
	}
	if extractErr != nil {
		logger.Warn("invoice extraction failed",
			logging.Error(extractErr),
			logging.Duration("elapsed", time.Since(started)),
		)
		p.record(ctx, logger, task, nil, extractErr)
		return extractErr
	}

	logger.Info("invoice processed",
		logging.Int("products", len(products)),
		logging.Duration("elapsed", time.Since(started)),
	)
	p.record(ctx, logger, task, products, nil)
	return nil
}

// interrupted handles a cancelled task. Shutdown leaves the invoice pending
// for Resubmit; operator cancellation records a failure.
func (p *Processor) interrupted(ctx context.Context, logger *slog.Logger, task Task) error {
	if IsShutdown(ctx) {
		return context.Cause(ctx)
	}
	logger.Info("invoice processing cancelled")
	p.record(ctx, logger, task, nil, ErrCancelled)
	return ErrCancelled
}

func (p *Processor) record(ctx context.Context, logger *slog.Logger, task Task, products []extraction.Product, failure error) {
	writeCtx := context.WithoutCancel(ctx)
	var err error
	if failure == nil {
		err = p.invoices.MarkProcessed(writeCtx, task.InvoiceID, products)
	} else {
		err = p.invoices.MarkFailed(writeCtx, task.InvoiceID, FailureMessage(failure))
	}
	switch {
	case err == nil:
	case errors.Is(err, invoice.ErrFinalized):
		logger.Info("invoice already has an outcome; result discarded")
	default:
		logger.Error("record invoice outcome failed",
			logging.Error(err),
			logging.Bool("extraction_succeeded", failure == nil),
		)
	}
}

// FailureMessage is the text stored as an invoice's processing error.
func FailureMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return cancelledMessage
	default:
		return services.Detail(err)
	}
}
