// Package imageprep turns uploaded documents into raster inputs the pixel
// analyzers can consume, and sniffs media types from file content.
package imageprep

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strings"
)

// Preparer converts uploads into analyzable PNG rasters. PDFs pass through
// unchanged: the metadata signal reads them natively and the pixel signals
// degrade on their own when handed a non-raster path.
type Preparer struct {
	tempDir string
}

func NewPreparer(tempDir string) *Preparer {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Preparer{tempDir: tempDir}
}

// Prepare returns a path suitable for pixel analysis plus a cleanup func for
// any scratch file it created. PNG inputs and PDFs are returned as-is; other
// raster formats are re-encoded into a scratch PNG.
func (p *Preparer) Prepare(ctx context.Context, path string) (string, func(), error) {
	nop := func() {}

	if _, err := os.Stat(path); err != nil {
		return "", nop, fmt.Errorf("stat document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", nop, err
	}

	mediaType, err := p.SniffMediaType(path)
	if err != nil {
		return "", nop, err
	}
	switch {
	case mediaType == "application/pdf":
		return path, nop, nil
	case mediaType == "image/png":
		return path, nop, nil
	case strings.HasPrefix(mediaType, "image/"):
		return p.reencodePNG(path)
	default:
		return "", nop, fmt.Errorf("unsupported media type %q", mediaType)
	}
}

func (p *Preparer) reencodePNG(path string) (string, func(), error) {
	nop := func() {}

	img, err := Decode(path)
	if err != nil {
		return "", nop, err
	}

	out, err := os.CreateTemp(p.tempDir, "prepared-*.png")
	if err != nil {
		return "", nop, fmt.Errorf("create scratch png: %w", err)
	}
	cleanup := func() { _ = os.Remove(out.Name()) }

	if err := png.Encode(out, img); err != nil {
		out.Close()
		cleanup()
		return "", nop, fmt.Errorf("encode scratch png: %w", err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nop, fmt.Errorf("close scratch png: %w", err)
	}
	return out.Name(), cleanup, nil
}
