// Package ocrengine adapts the Tesseract OCR engine behind the OCREngine
// port. Tesseract links against a C library, so the real implementation is
// gated behind the "ocr" build tag; without it Detect fails fast with
// ErrNotEnabled and the text-layout signal degrades.
package ocrengine

import "errors"

// ErrNotEnabled is returned by Detect when the binary was built without the
// "ocr" tag.
var ErrNotEnabled = errors.New("ocr support not compiled in, rebuild with -tags ocr")

type Engine struct{}

func New() *Engine { return &Engine{} }
