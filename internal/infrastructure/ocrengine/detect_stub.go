//go:build !ocr

package ocrengine

import (
	"context"

	"github.com/forgesight/forgesight/internal/core/ports"
)

func (e *Engine) Detect(_ context.Context, _ string, _ ports.OCROptions) ([]ports.OCRWord, error) {
	return nil, ErrNotEnabled
}
