// Package library owns the tracked book collection and its lifecycle:
// new -> uploading -> processing -> ready, with failed as the terminal error
// state and deletion possible from anywhere. The tracker is the single writer
// of book state; pipeline failures are folded into the book, never returned to
// the caller that started the pipeline.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/paths"
	"github.com/hywei/ebookflow/internal/remote"
)

// bookContentType is the only content type the pipeline handles.
const bookContentType = "application/pdf"

var (
	// ErrNotFound reports an id absent from the collection.
	ErrNotFound = errors.New("book not found")
	// ErrBusy reports an operation already in flight for the book.
	ErrBusy = errors.New("an operation is already in flight for this book")
	// ErrNotProcessing reports a refresh on a book outside the processing state.
	ErrNotProcessing = errors.New("book is not in the processing state")
	// ErrNotReady reports an AI request for a book whose text is not ready.
	ErrNotReady = errors.New("book text is not ready")
)

// Tracker drives the document lifecycle. All mutation goes through update(),
// which tolerates ids removed mid-flight: a deleted book never resurrects.
type Tracker struct {
	mu    sync.Mutex
	books []*models.Book
	busy  map[string]struct{}

	store  Store
	svc    remote.Service
	userID string
	wg     sync.WaitGroup
}

// NewTracker loads the persisted collection and returns a ready tracker.
func NewTracker(store Store, svc remote.Service, userID string) (*Tracker, error) {
	if userID == "" {
		userID = "guest"
	}
	loaded, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	books := make([]*models.Book, 0, len(loaded))
	for i := range loaded {
		b := loaded[i]
		books = append(books, &b)
	}
	return &Tracker{
		books:  books,
		busy:   make(map[string]struct{}),
		store:  store,
		svc:    svc,
		userID: userID,
	}, nil
}

// Add tracks a new book and immediately starts its upload pipeline in the
// background. Pipeline errors never propagate here; they end up in the book's
// own status and error message.
func (t *Tracker) Add(ctx context.Context, sourceURI, fileName string) (models.Book, error) {
	if sourceURI == "" || fileName == "" {
		return models.Book{}, fmt.Errorf("sourceURI and fileName are required")
	}

	now := time.Now()
	book := &models.Book{
		ID:        models.NewBookID(now, fileName),
		FileName:  fileName,
		SourceURI: sourceURI,
		Status:    models.StatusNew,
		CreatedAt: now,
	}

	t.mu.Lock()
	for n := 2; t.findLocked(book.ID) != nil; n++ {
		book.ID = fmt.Sprintf("%s-%d", models.NewBookID(now, fileName), n)
	}
	t.books = append(t.books, book)
	t.busy[book.ID] = struct{}{}
	t.persistLocked()
	snapshot := *book
	t.mu.Unlock()

	t.wg.Add(1)
	go t.runUploadPipeline(ctx, snapshot.ID, fileName, sourceURI)

	return snapshot, nil
}

// runUploadPipeline walks one book through signed-URL issuance, the raw
// transfer, and the OCR trigger. The first failing step aborts the rest and
// marks the book failed; there is no partial retry.
func (t *Tracker) runUploadPipeline(ctx context.Context, id, fileName, sourceURI string) {
	defer t.wg.Done()
	defer t.clearBusy(id)

	// The destination is fully determined by the user and file name. Record
	// it before the first remote call so a book that fails at any step still
	// points at its would-be location.
	gcsPath := paths.UploadObject(t.userID, fileName)
	t.update(id, func(b *models.Book) {
		b.GCSUploadPath = gcsPath
	})

	uploadURL, err := t.svc.GenerateUploadURL(ctx, fileName, bookContentType)
	if err != nil {
		t.failBook(id, err)
		return
	}

	t.update(id, func(b *models.Book) {
		b.Status = models.StatusUploading
	})

	if err := t.svc.UploadFile(ctx, uploadURL, sourceURI, bookContentType); err != nil {
		t.failBook(id, err)
		return
	}

	if err := t.svc.StartProcessing(ctx, gcsPath); err != nil {
		t.failBook(id, err)
		return
	}

	if t.update(id, func(b *models.Book) {
		b.Status = models.StatusProcessing
	}) {
		log.Printf("[Book: %s] Upload complete, processing started at %s.", id, gcsPath)
	}
}

// Refresh polls for the book's OCR result. It returns true when the book
// became ready, false with a nil error when the result is not available yet.
func (t *Tracker) Refresh(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	book := t.findLocked(id)
	if book == nil {
		t.mu.Unlock()
		return false, ErrNotFound
	}
	if book.Status != models.StatusProcessing {
		t.mu.Unlock()
		return false, fmt.Errorf("%w: %s is %s", ErrNotProcessing, id, book.Status)
	}
	if _, inFlight := t.busy[id]; inFlight {
		t.mu.Unlock()
		return false, ErrBusy
	}
	t.busy[id] = struct{}{}
	uploadPath := book.GCSUploadPath
	t.mu.Unlock()
	defer t.clearBusy(id)

	text, ok, err := t.svc.FetchExtractedText(ctx, uploadPath)
	if err != nil {
		// Cancellation comes from the caller, not the backend. The book is
		// still processing and a later refresh can retry.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		// A genuine transport or backend failure, as opposed to the result
		// simply not existing yet.
		t.failBook(id, err)
		return false, err
	}
	if !ok {
		log.Printf("[Book: %s] OCR result not ready yet.", id)
		return false, nil
	}

	t.update(id, func(b *models.Book) {
		b.Status = models.StatusReady
		b.ProcessedText = text
		b.Error = ""
	})
	log.Printf("[Book: %s] OCR result fetched (%d chars).", id, len(text))
	return true, nil
}

// RefreshAll polls every processing book, at most limit at a time. Books with
// an operation already in flight are skipped. Polls are independent: one
// book's failure neither cancels nor fails its siblings.
func (t *Tracker) RefreshAll(ctx context.Context, limit int) error {
	t.mu.Lock()
	var ids []string
	for _, b := range t.books {
		if b.Status == models.StatusProcessing {
			ids = append(ids, b.ID)
		}
	}
	t.mu.Unlock()

	if limit <= 0 {
		limit = 4
	}
	var eg errgroup.Group
	eg.SetLimit(limit)
	for _, id := range ids {
		eg.Go(func() error {
			_, err := t.Refresh(ctx, id)
			if errors.Is(err, ErrBusy) || errors.Is(err, ErrNotProcessing) {
				return nil
			}
			return err
		})
	}
	return eg.Wait()
}

// Delete removes a book unconditionally, in-flight pipeline or not. Any later
// write-back for the removed id is a no-op.
func (t *Tracker) Delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, b := range t.books {
		if b.ID == id {
			t.books = append(t.books[:i], t.books[i+1:]...)
			t.persistLocked()
			return nil
		}
	}
	return ErrNotFound
}

// Get returns a copy of one tracked book.
func (t *Tracker) Get(id string) (models.Book, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b := t.findLocked(id); b != nil {
		return *b, nil
	}
	return models.Book{}, ErrNotFound
}

// Books returns a snapshot of the collection in insertion order.
func (t *Tracker) Books() []models.Book {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Book, 0, len(t.books))
	for _, b := range t.books {
		out = append(out, *b)
	}
	return out
}

// Summarize returns an AI summary of a ready book's text. Unlike pipeline
// errors, a failure here propagates to the caller as a displayable message.
func (t *Tracker) Summarize(ctx context.Context, id string) (string, error) {
	text, err := t.readyText(id)
	if err != nil {
		return "", err
	}
	return t.svc.Summarize(ctx, text)
}

// Concepts returns AI-extracted key concepts of a ready book's text.
func (t *Tracker) Concepts(ctx context.Context, id string) ([]models.Concept, error) {
	text, err := t.readyText(id)
	if err != nil {
		return nil, err
	}
	return t.svc.ExtractConcepts(ctx, text)
}

// Wait blocks until all background pipelines started by Add have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) readyText(id string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	book := t.findLocked(id)
	if book == nil {
		return "", ErrNotFound
	}
	if book.Status != models.StatusReady || book.ProcessedText == "" {
		return "", fmt.Errorf("%w: %s is %s", ErrNotReady, id, book.Status)
	}
	return book.ProcessedText, nil
}

func (t *Tracker) failBook(id string, cause error) {
	if t.update(id, func(b *models.Book) {
		b.Status = models.StatusFailed
		b.Error = cause.Error()
		b.ProcessedText = ""
	}) {
		log.Printf("[Book: %s] ERROR: %v", id, cause)
	}
}

// update applies fn to the book and persists the collection. It reports false
// when the id is no longer tracked, in which case nothing happens.
func (t *Tracker) update(id string, fn func(*models.Book)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	book := t.findLocked(id)
	if book == nil {
		return false
	}
	fn(book)
	t.persistLocked()
	return true
}

func (t *Tracker) findLocked(id string) *models.Book {
	for _, b := range t.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// persistLocked writes the whole collection. Persistence is best effort: a
// failed save is logged and the in-memory state stays authoritative.
func (t *Tracker) persistLocked() {
	snapshot := make([]models.Book, 0, len(t.books))
	for _, b := range t.books {
		snapshot = append(snapshot, *b)
	}
	if err := t.store.Save(snapshot); err != nil {
		log.Printf("ERROR: Failed to persist library state: %v", err)
	}
}

func (t *Tracker) clearBusy(id string) {
	t.mu.Lock()
	delete(t.busy, id)
	t.mu.Unlock()
}
