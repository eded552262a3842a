//go:build ocr

package ocrengine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
)

// Detect runs word-level recognition over the image at imagePath. A fresh
// client per call keeps this safe for concurrent use; Tesseract clients are
// not.
func (e *Engine) Detect(ctx context.Context, imagePath string, opts ports.OCROptions) ([]ports.OCRWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.Language != "" {
		if err := client.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("set ocr language: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegmentationMode)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetVariable(gosseract.SettableVariable("tessedit_ocr_engine_mode"), strconv.Itoa(opts.EngineMode)); err != nil {
		return nil, fmt.Errorf("set ocr engine mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set ocr image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("ocr recognition: %w", err)
	}

	words := make([]ports.OCRWord, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ports.OCRWord{
			BBox: domain.BoundingBox{
				X: b.Box.Min.X,
				Y: b.Box.Min.Y,
				W: b.Box.Dx(),
				H: b.Box.Dy(),
			},
			Text:       b.Word,
			Confidence: b.Confidence,
			LineNum:    b.LineNum,
			BlockNum:   b.BlockNum,
			ParNum:     b.ParNum,
		})
	}
	return words, nil
}
