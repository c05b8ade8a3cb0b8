package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

func pdfcpuConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount parses pdf and returns its number of pages.
func PageCount(pdf []byte) (int, error) {
	if !IsPDF(pdf) {
		return 0, ErrNotPDF
	}
	count, err := api.PageCount(bytes.NewReader(pdf), pdfcpuConfig())
	if err != nil {
		return 0, fmt.Errorf("read pdf page count: %w", err)
	}
	return count, nil
}

// PDFCPU renders each page from its largest embedded raster image. It suits
// scanned invoices and needs no external binary; pages that only contain
// vector text have no image and fail.
type PDFCPU struct {
	normalizer Normalizer
}

// NewPDFCPU returns the embedded-image backend.
func NewPDFCPU(normalizer Normalizer) *PDFCPU {
	return &PDFCPU{normalizer: normalizer}
}

func (p *PDFCPU) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	count, err := PageCount(pdf)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []Page{}, nil
	}

	extracted, err := api.ExtractImagesRaw(bytes.NewReader(pdf), nil, pdfcpuConfig())
	if err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	largest := make(map[int]model.Image, count)
	for _, images := range extracted {
		for _, img := range images {
			if img.Thumb || img.PageNr < 1 {
				continue
			}
			current, ok := largest[img.PageNr]
			if !ok || img.Width*img.Height > current.Width*current.Height {
				largest[img.PageNr] = img
			}
		}
	}

	pages := make([]Page, 0, count)
	for number := 1; number <= count; number++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, ok := largest[number]
		if !ok {
			return nil, fmt.Errorf("page %d has no embedded raster image (try the poppler backend)", number)
		}
		page, err := p.normalizer.NormalizeReader(img)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", number, err)
		}
		page.Number = number
		pages = append(pages, page)
	}
	return pages, nil
}
