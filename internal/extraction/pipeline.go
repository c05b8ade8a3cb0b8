package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"wizqueue/internal/logging"
	"wizqueue/internal/rasterize"
	"wizqueue/internal/services"
)

// VisionModel answers a prompt about base64-encoded images.
type VisionModel interface {
	Generate(ctx context.Context, prompt string, images ...string) (string, error)
}

// Pipeline extracts products from invoice PDFs.
type Pipeline struct {
	rasterizer      rasterize.Rasterizer
	model           VisionModel
	logger          *slog.Logger
	pageConcurrency int
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.NewComponentLogger(logger, "extraction")
	}
}

// WithPageConcurrency bounds how many pages are sent to the model at once.
// Values below 1 are treated as 1.
func WithPageConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.pageConcurrency = max(n, 1)
	}
}

// NewPipeline wires a rasterizer and a vision model.
func NewPipeline(rasterizer rasterize.Rasterizer, model VisionModel, opts ...Option) *Pipeline {
	p := &Pipeline{
		rasterizer:      rasterizer,
		model:           model,
		logger:          logging.NewNop(),
		pageConcurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtractProductsFromPDF reads path and extracts its products.
func (p *Pipeline) ExtractProductsFromPDF(ctx context.Context, path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Op: "read pdf", Err: err}
	}
	return p.ExtractProducts(ctx, data)
}

// ExtractProducts rasterizes pdf, queries the model once per page, and
// returns the deduplicated products of all pages.
func (p *Pipeline) ExtractProducts(ctx context.Context, pdf []byte) ([]Product, error) {
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	pages, err := p.rasterizer.Rasterize(ctx, pdf)
	if err != nil {
		return nil, &ExtractionError{Op: "rasterize", Err: err}
	}
	if len(pages) == 0 {
		return nil, &ExtractionError{Op: "rasterize", Err: ErrNoPages}
	}
	logger.Info("pdf rasterized", logging.Int("pages", len(pages)))

	perPage := make([][]Product, len(pages))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.pageConcurrency)
	for i, page := range pages {
		group.Go(func() error {
			products, err := p.extractPage(groupCtx, page, len(pages))
			if err != nil {
				return err
			}
			perPage[i] = products
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var all []Product
	for _, products := range perPage {
		all = append(all, products...)
	}
	merged := Deduplicate(all)
	logger.Info("products extracted",
		logging.Int("pages", len(pages)),
		logging.Int("raw_products", len(all)),
		logging.Int("products", len(merged)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return merged, nil
}

func (p *Pipeline) extractPage(ctx context.Context, page rasterize.Page, total int) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Op: "model request", Page: page.Number, Err: err}
	}
	ctx = services.WithPage(ctx, page.Number)
	logger := logging.WithContext(ctx, p.logger)
	logger.Debug("querying vision model", logging.Int("total_pages", total), logging.Int("image_bytes", len(page.Image)))

	encoded := base64.StdEncoding.EncodeToString(page.Image)
	raw, err := p.model.Generate(ctx, Prompt, encoded)
	if err != nil {
		return nil, &ExtractionError{Op: "model request", Page: page.Number, Err: err}
	}
	logger.Debug("raw model response", logging.String("snippet", snippet(raw, 200)))

	products, outcome := parseResponse(raw)
	if outcome != OutcomeOK {
		logger.Warn("model response yielded no products",
			logging.String("reason", string(outcome)),
			logging.String("snippet", snippet(raw, 200)),
		)
	}
	return products, nil
}

func snippet(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return fmt.Sprintf("%s... (%d chars)", string(runes[:limit]), len(runes))
}
