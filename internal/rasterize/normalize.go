package rasterize

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// Normalizer decodes a page image, bounds its size, and re-encodes it as PNG.
// Zero MaxWidth or MaxHeight leaves that dimension unbounded.
type Normalizer struct {
	MaxWidth  int
	MaxHeight int
	Grayscale bool
}

// Normalize converts encoded image bytes into a PNG page.
func (n Normalizer) Normalize(data []byte) (Page, error) {
	return n.NormalizeReader(bytes.NewReader(data))
}

// NormalizeReader converts an encoded image stream into a PNG page.
func (n Normalizer) NormalizeReader(r io.Reader) (Page, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Page{}, fmt.Errorf("decode page image: %w", err)
	}

	maxW, maxH := n.MaxWidth, n.MaxHeight
	if maxW <= 0 {
		maxW = math.MaxInt32
	}
	if maxH <= 0 {
		maxH = math.MaxInt32
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxW || bounds.Dy() > maxH {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}
	if n.Grayscale {
		img = imaging.Grayscale(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Page{}, fmt.Errorf("encode page image: %w", err)
	}
	bounds = img.Bounds()
	return Page{Image: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
