package model

import "time"

// Status tracks the outcome of one document's processing.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ExtractionResult is the persisted unit: one document, its extraction and
// quality metrics, plus processing metadata. Extraction and Quality are nil
// when Status is failed.
type ExtractionResult struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"upload_timestamp"`

	Extraction *LeaseExtraction `json:"extraction,omitempty"`
	Quality    *QualityMetrics  `json:"quality,omitempty"`

	ProcessingMS int64  `json:"processing_time_ms"`
	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// BatchOutcome is the per-document entry of a batch run. A failing document
// never aborts the batch; it is reported here with Error set.
type BatchOutcome struct {
	Index    int               `json:"index"`
	Filename string            `json:"filename"`
	Result   *ExtractionResult `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Succeeded reports whether this batch item produced a scored extraction.
func (o BatchOutcome) Succeeded() bool {
	return o.Error == "" && o.Result != nil && o.Result.Status == StatusSuccess
}
