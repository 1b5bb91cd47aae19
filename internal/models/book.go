package models

import (
	"fmt"
	"time"
)

// BookStatus is the lifecycle state of a tracked book on the client.
type BookStatus string

const (
	StatusNew        BookStatus = "new"
	StatusUploading  BookStatus = "uploading"
	StatusProcessing BookStatus = "processing"
	StatusReady      BookStatus = "ready"
	StatusFailed     BookStatus = "failed"
)

// Book is one tracked document in the local library. The id, file name and
// source location are fixed at creation; everything else is owned by the
// lifecycle tracker and mutated as the book moves through upload and OCR.
type Book struct {
	ID            string     `json:"id"`
	FileName      string     `json:"fileName"`
	SourceURI     string     `json:"sourceUri"`
	GCSUploadPath string     `json:"gcsUploadPath,omitempty"`
	Status        BookStatus `json:"status"`
	ProcessedText string     `json:"processedText,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewBookID derives a book id from the creation instant and the original file
// name. Millisecond precision keeps ids unique for interactive use while
// staying human-readable in logs.
func NewBookID(t time.Time, fileName string) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), fileName)
}

// Concept is one entry of an AI concept-extraction result.
type Concept struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}
