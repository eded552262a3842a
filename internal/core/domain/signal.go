package domain

import (
	"encoding/json"
	"fmt"
)

// SignalName identifies one of the three forensic analyzers.
type SignalName string

const (
	SignalELA      SignalName = "ela"
	SignalOCR      SignalName = "ocr"
	SignalMetadata SignalName = "metadata"
)

// Signals returns the canonical fusion order. Every place that iterates over
// signals uses this order so results are reproducible.
func Signals() []SignalName {
	return []SignalName{SignalELA, SignalOCR, SignalMetadata}
}

// DisplayName is the human-facing analyzer title used in summaries.
func (n SignalName) DisplayName() string {
	switch n {
	case SignalELA:
		return "Error Level Analysis"
	case SignalOCR:
		return "Text Inconsistency"
	case SignalMetadata:
		return "Metadata Forensics"
	}
	return string(n)
}

// FindingLabel is the short tag used on combined findings and error strings.
func (n SignalName) FindingLabel() string {
	switch n {
	case SignalELA:
		return "ELA"
	case SignalOCR:
		return "OCR"
	case SignalMetadata:
		return "Metadata"
	}
	return string(n)
}

// SignalStatus records how a signal's computation ended.
type SignalStatus string

const (
	StatusCompleted SignalStatus = "completed"
	StatusTimeout   SignalStatus = "timeout"
	StatusError     SignalStatus = "error"
)

// BoundingBox is a pixel-space rectangle. It serializes as the compact
// [x, y, w, h] array form used throughout the report contract.
type BoundingBox struct {
	X int
	Y int
	W int
	H int
}

func (b BoundingBox) Right() int  { return b.X + b.W }
func (b BoundingBox) Bottom() int { return b.Y + b.H }

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X, b.Y, b.W, b.H})
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var arr [4]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("bounding box must be a [x, y, w, h] array: %w", err)
	}
	b.X, b.Y, b.W, b.H = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// Finding is one localized piece of forensic evidence. Within a signal result
// Kind names the detection rule; on combined findings the fusion engine
// rewrites Kind to the source signal's label and fills Signal.
type Finding struct {
	Kind        string         `json:"type"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	BBox        *BoundingBox   `json:"bbox,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Signal      SignalName     `json:"signal,omitempty"`
}

// SignalResult is the complete output of one analyzer.
type SignalResult struct {
	Name              SignalName   `json:"name"`
	OverallConfidence float64      `json:"confidence"`
	Findings          []Finding    `json:"findings"`
	Summary           string       `json:"summary"`
	Status            SignalStatus `json:"status"`
}

// DegradedSignal is the placeholder result for a signal that timed out or
// failed: zero confidence, no findings. With an empty summary the generic
// explanation is used.
func DegradedSignal(name SignalName, status SignalStatus, summary string) SignalResult {
	if summary == "" {
		summary = "Analysis failed or not available"
	}
	return SignalResult{
		Name:              name,
		OverallConfidence: 0,
		Findings:          []Finding{},
		Summary:           summary,
		Status:            status,
	}
}

// Clamp100 bounds a confidence value to [0, 100].
func Clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
