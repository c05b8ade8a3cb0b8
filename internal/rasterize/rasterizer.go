// Package rasterize converts PDF documents into ordered page images.
package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"wizqueue/internal/config"
)

// ErrNotPDF reports input without the %PDF signature.
var ErrNotPDF = errors.New("not a PDF document")

// Page is one rendered page. Number is 1-indexed.
type Page struct {
	Number int
	Image  []byte
	Width  int
	Height int
}

// Rasterizer renders every page of a PDF, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]Page, error)
}

// New builds the backend selected in configuration.
func New(cfg *config.Config) (Rasterizer, error) {
	normalizer := Normalizer{
		MaxWidth:  cfg.Rasterize.MaxWidth,
		MaxHeight: cfg.Rasterize.MaxHeight,
		Grayscale: cfg.Rasterize.Grayscale,
	}
	switch cfg.Rasterize.Backend {
	case config.BackendPoppler:
		return NewPoppler(cfg.Rasterize.PdftoppmBinary, cfg.Rasterize.DPI, normalizer), nil
	case config.BackendPDFCPU:
		return NewPDFCPU(normalizer), nil
	default:
		return nil, fmt.Errorf("rasterize: unsupported backend %q", cfg.Rasterize.Backend)
	}
}

// IsPDF reports whether data starts with the PDF signature. Leading
// whitespace and a UTF-8 BOM are tolerated, as some generators emit them.
func IsPDF(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// SniffFile checks the PDF signature of the file at path.
func SniffFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !IsPDF(head[:n]) {
		return ErrNotPDF
	}
	return nil
}
