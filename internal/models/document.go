package models

import "time"

// OCRJob is the backend's record of one OCR batch request in Firestore. It is
// independent of the client-side Book status: the client observes completion
// only by polling the derived output object, never by reading this record.
type OCRJob struct {
	GCSPath          string    `firestore:"gcsPath,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	ErrorDetails     string    `firestore:"errorDetails,omitempty"`
	PageCount        int       `firestore:"pageCount,omitempty"`
	OperationName    string    `firestore:"operationName,omitempty"`
	ExecutionID      string    `firestore:"executionId,omitempty"` // For traceability
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}

const (
	JobStatusProcessing = "PROCESSING"
	JobStatusFailed     = "FAILED"
)
