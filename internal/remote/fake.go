package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/paths"
)

// Canned content returned by a zero-configured Fake, mirroring a plausible
// backend so the CLI stays fully interactive offline.
const (
	FakeOCRText = "This is the simulated text content of a processed PDF document.\n\n" +
		"Chapter 1: The Basics\n\nIt stands in for the OCR output of a real book chapter " +
		"so the reading, summary, and concept flows can be exercised without a backend."
	FakeSummary = "A short mock summary of the document, standing in for a generative-AI response."
)

// FakeConcepts is the canned concept list a zero-configured Fake returns.
var FakeConcepts = []models.Concept{
	{Concept: "Mocking", Explanation: "Substituting a real collaborator with a configurable stand-in."},
	{Concept: "Lifecycle tracking", Explanation: "Following a document from upload through processing to readable text."},
}

// Fake is the in-memory Service implementation used by tests and --mock runs.
// Error fields, when set, fail the corresponding operation; Ready and Text
// drive polling. The zero value behaves like a healthy backend whose OCR has
// not finished yet.
type Fake struct {
	mu sync.Mutex

	UploadURLErr error
	UploadErr    error
	StartErr     error
	PollErr      error
	SummarizeErr error
	ConceptsErr  error

	Ready    bool
	Text     string
	Summary  string
	Concepts []models.Concept

	// BeforeUpload, when set, runs between URL issuance and the transfer.
	// Tests use it to interleave tracker calls with an in-flight pipeline.
	BeforeUpload func()
	// BeforePoll, when set, runs at the start of FetchExtractedText.
	BeforePoll func()

	// Uploaded records the destination of every completed transfer.
	Uploaded []string
	// Started records every gcsPath handed to StartProcessing.
	Started []string
}

// NewFake returns a Fake preloaded with the canned content and a ready result.
func NewFake() *Fake {
	return &Fake{
		Ready:    true,
		Text:     FakeOCRText,
		Summary:  FakeSummary,
		Concepts: FakeConcepts,
	}
}

func (f *Fake) GenerateUploadURL(ctx context.Context, fileName, contentType string) (string, error) {
	if f.UploadURLErr != nil {
		return "", f.UploadURLErr
	}
	return fmt.Sprintf("https://mock-storage.invalid/upload-url-for/%s", fileName), nil
}

func (f *Fake) UploadFile(ctx context.Context, uploadURL, sourcePath, contentType string) error {
	if f.BeforeUpload != nil {
		f.BeforeUpload()
	}
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.mu.Lock()
	f.Uploaded = append(f.Uploaded, uploadURL)
	f.mu.Unlock()
	return nil
}

func (f *Fake) StartProcessing(ctx context.Context, gcsPath string) error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.Started = append(f.Started, gcsPath)
	f.mu.Unlock()
	return nil
}

func (f *Fake) FetchExtractedText(ctx context.Context, uploadPath string) (string, bool, error) {
	if f.BeforePoll != nil {
		f.BeforePoll()
	}
	if f.PollErr != nil {
		return "", false, f.PollErr
	}
	// Exercise the shared derivation even though the fake has no storage.
	if _, err := paths.OCROutputObject(uploadPath); err != nil {
		return "", false, &RemoteError{Op: "fetchExtractedText", Err: err}
	}
	if !f.Ready {
		return "", false, nil
	}
	return f.Text, true, nil
}

func (f *Fake) Summarize(ctx context.Context, text string) (string, error) {
	if f.SummarizeErr != nil {
		return "", f.SummarizeErr
	}
	return f.Summary, nil
}

func (f *Fake) ExtractConcepts(ctx context.Context, text string) ([]models.Concept, error) {
	if f.ConceptsErr != nil {
		return nil, f.ConceptsErr
	}
	return f.Concepts, nil
}
