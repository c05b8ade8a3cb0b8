package invoice

import (
	"errors"
	"time"

	"wizqueue/internal/extraction"
)

// ErrFinalized reports a terminal transition on an invoice that already has
// an outcome.
var ErrFinalized = errors.New("invoice already finalized")

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// State is the derived lifecycle state shown to API clients.
type State string

const (
	StateUploaded   State = "uploaded"
	StateProcessing State = "processing"
	StateProcessed  State = "processed"
	StateFailed     State = "failed"
)

// Invoice is one uploaded PDF.
type Invoice struct {
	ID              int64
	Filename        string
	FilePath        string
	UploadDate      time.Time
	Processed       bool
	ProcessingError string
	// ExtractedData is nil until the invoice is processed.
	ExtractedData []extraction.Product
	CreatedAt     time.Time
}

// Finalized reports whether a terminal outcome has been recorded.
func (inv *Invoice) Finalized() bool {
	return inv.Processed || inv.ProcessingError != ""
}

// State derives the lifecycle state. inFlight is true when the worker pool
// currently holds a task for this invoice.
func (inv *Invoice) State(inFlight bool) State {
	switch {
	case inv.Processed:
		return StateProcessed
	case inv.ProcessingError != "":
		return StateFailed
	case inFlight:
		return StateProcessing
	default:
		return StateUploaded
	}
}
