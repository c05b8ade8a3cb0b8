package extraction

import (
	"errors"
	"fmt"

	"wizqueue/internal/services"
)

// ErrNoPages is wrapped when rasterization yields nothing to send.
var ErrNoPages = errors.New("no images extracted from PDF")

// ExtractionError is the single failure type of a Pipeline run.
type ExtractionError struct {
	Op   string
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	msg := "failed to extract products"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Page > 0 {
		msg += fmt.Sprintf(": page %d", e.Page)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() []error {
	return []error{services.ErrExtraction, e.Err}
}
