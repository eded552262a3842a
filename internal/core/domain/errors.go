package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrTemporary        = errors.New("temporary failure")
)

// Analyzer error taxonomy. These never propagate past the fusion engine:
// AnalyzerTimeout and AnalyzerFailure degrade exactly one signal,
// PipelineFailure is recovered into a PROCESSING_ERROR result.
var (
	ErrAnalyzerTimeout = errors.New("analyzer timeout")
	ErrAnalyzerFailure = errors.New("analyzer failure")
	ErrPipelineFailure = errors.New("pipeline failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
