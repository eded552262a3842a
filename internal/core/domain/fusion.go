package domain

// Verdict is the final classification of a document. The ladder runs from
// most to least suspicious; PROCESSING_ERROR is reserved for documents the
// pipeline could not analyze at all.
type Verdict string

const (
	VerdictHighlySuspicious     Verdict = "HIGHLY_SUSPICIOUS"
	VerdictSuspicious           Verdict = "SUSPICIOUS"
	VerdictModeratelySuspicious Verdict = "MODERATELY_SUSPICIOUS"
	VerdictSlightlySuspicious   Verdict = "SLIGHTLY_SUSPICIOUS"
	VerdictNeedsReview          Verdict = "NEEDS_REVIEW"
	VerdictLikelyAuthentic      Verdict = "LIKELY_AUTHENTIC"
	VerdictProcessingError      Verdict = "PROCESSING_ERROR"
)

// FusionResult is the fused outcome of one analysis run. It is immutable once
// produced: the cache hands out the same value to every caller.
type FusionResult struct {
	DocumentID        string                      `json:"document_id"`
	OverallConfidence float64                     `json:"confidence"`
	Uncertainty       float64                     `json:"uncertainty"`
	Verdict           Verdict                     `json:"verdict"`
	Signals           map[SignalName]SignalResult `json:"signals"`
	CombinedFindings  []Finding                   `json:"combined_findings"`
	Recommendations   []string                    `json:"recommendations"`
	Errors            []string                    `json:"errors"`
	ProcessingTime    float64                     `json:"processing_time"`
}

// ProcessingStats summarizes the pipeline's accumulated work.
type ProcessingStats struct {
	DocumentsProcessed    int     `json:"documents_processed"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	CacheSize             int     `json:"cache_size"`
}
