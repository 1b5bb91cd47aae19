// Package remote is the client's uniform facade over the backend services:
// signed-URL issuance, the raw upload, the OCR trigger, result polling, and
// the generative-text calls. Every operation is a single request/response with
// no retry; transport and backend failures surface as *RemoteError.
package remote

import (
	"context"
	"fmt"

	"github.com/hywei/ebookflow/internal/models"
)

// Service is the capability surface the lifecycle tracker depends on. Client
// is the real implementation; Fake substitutes for it in tests and offline use.
type Service interface {
	// GenerateUploadURL requests a pre-authorized upload destination.
	GenerateUploadURL(ctx context.Context, fileName, contentType string) (string, error)

	// UploadFile transfers a local file to an upload destination.
	UploadFile(ctx context.Context, uploadURL, sourcePath, contentType string) error

	// StartProcessing asks the backend to begin OCR for an uploaded object.
	// Success means accepted, not completed.
	StartProcessing(ctx context.Context, gcsPath string) error

	// FetchExtractedText looks for OCR output derived from an upload path.
	// ok=false with a nil error means the result is not ready yet; that is a
	// valid try-later outcome, not a failure.
	FetchExtractedText(ctx context.Context, uploadPath string) (text string, ok bool, err error)

	// Summarize returns an AI summary of the text.
	Summarize(ctx context.Context, text string) (string, error)

	// ExtractConcepts returns AI-extracted key concepts of the text.
	ExtractConcepts(ctx context.Context, text string) ([]models.Concept, error)
}

// RemoteError describes a failed remote operation. StatusCode and Body are
// populated when an HTTP response was received; Err when the failure happened
// below that (transport, decode).
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server responded with status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
