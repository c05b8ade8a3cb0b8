package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	commandContext  = exec.CommandContext
	pageFilePattern = regexp.MustCompile(`-(\d+)\.png$`)
)

// Poppler renders pages with pdftoppm.
type Poppler struct {
	binary     string
	dpi        int
	normalizer Normalizer
}

// NewPoppler returns the pdftoppm backend.
func NewPoppler(binary string, dpi int, normalizer Normalizer) *Poppler {
	if strings.TrimSpace(binary) == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 144
	}
	return &Poppler{binary: binary, dpi: dpi, normalizer: normalizer}
}

// Binary returns the pdftoppm executable name.
func (p *Poppler) Binary() string { return p.binary }

func (p *Poppler) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	if !IsPDF(pdf) {
		return nil, ErrNotPDF
	}

	workDir, err := os.MkdirTemp("", "wizqueue-raster-")
	if err != nil {
		return nil, fmt.Errorf("create raster work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write raster input: %w", err)
	}
	prefix := filepath.Join(workDir, "page")

	cmd := commandContext(ctx, p.binary, "-r", strconv.Itoa(p.dpi), "-png", input, prefix) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", p.binary, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", p.binary, err)
	}

	files, err := collectPageFiles(workDir)
	if err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file.path)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", file.number, err)
		}
		page, err := p.normalizer.Normalize(data)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", file.number, err)
		}
		page.Number = file.number
		pages = append(pages, page)
	}
	return pages, nil
}

type pageFile struct {
	number int
	path   string
}

// collectPageFiles orders pdftoppm output by page number; its zero padding
// depends on the page count, so names cannot be sorted lexically.
func collectPageFiles(dir string) ([]pageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list raster output: %w", err)
	}
	var files []pageFile
	for _, entry := range entries {
		match := pageFilePattern.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		files = append(files, pageFile{number: number, path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].number < files[j].number })
	return files, nil
}
