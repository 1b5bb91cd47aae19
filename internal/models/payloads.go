package models

// These structs define the JSON payloads for the callable HTTP functions the
// mobile/CLI client talks to.

// UploadURLRequest is the input for the upload-url function.
type UploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// UploadURLResponse is the output of the upload-url function.
type UploadURLResponse struct {
	URL string `json:"url"`
}

// ProcessRequest is the input for the manual (HTTP) trigger of the
// pdf-processor function. GCSPath is the object path inside the configured
// bucket, e.g. "uploads/guest/report.pdf".
type ProcessRequest struct {
	GCSPath string `json:"gcsPath"`
}

// ProcessResponse is the output of the pdf-processor function's HTTP trigger.
type ProcessResponse struct {
	Status      string `json:"status"`
	ExecutionID string `json:"executionId,omitempty"`
}

// SummaryRequest is the input for the ai-summary function.
type SummaryRequest struct {
	Text string `json:"text"`
}

// SummaryResponse is the output of the ai-summary function.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// ConceptsRequest is the input for the ai-concepts function.
type ConceptsRequest struct {
	Text string `json:"text"`
}

// ConceptsResponse is the output of the ai-concepts function.
type ConceptsResponse struct {
	Concepts []Concept `json:"concepts"`
}
