package library_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/remote"
)

func newTestStore(t *testing.T) *library.SQLiteStore {
	t.Helper()
	store, err := library.OpenStore(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestTracker(t *testing.T, svc remote.Service) *library.Tracker {
	t.Helper()
	tracker, err := library.NewTracker(newTestStore(t), svc, "guest")
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	return tracker
}

// checkInvariants asserts the status/field couplings that must hold for every
// book at all times.
func checkInvariants(t *testing.T, b models.Book) {
	t.Helper()
	if (b.Status == models.StatusReady) != (b.ProcessedText != "") {
		t.Errorf("book %s: status %s with processedText %q violates ready<=>text", b.ID, b.Status, b.ProcessedText)
	}
	if (b.Status == models.StatusFailed) != (b.Error != "") {
		t.Errorf("book %s: status %s with error %q violates failed<=>error", b.ID, b.Status, b.Error)
	}
	if b.Status != models.StatusNew && b.GCSUploadPath == "" {
		t.Errorf("book %s: status %s without gcsUploadPath", b.ID, b.Status)
	}
}

func TestAddRunsPipelineToProcessing(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	book, err := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if book.Status != models.StatusNew {
		t.Errorf("freshly added book status = %s, want new", book.Status)
	}
	tracker.Wait()

	got, err := tracker.Get(book.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.GCSUploadPath != "uploads/guest/report.pdf" {
		t.Errorf("gcsUploadPath = %q", got.GCSUploadPath)
	}
	if len(fake.Started) != 1 || fake.Started[0] != "uploads/guest/report.pdf" {
		t.Errorf("StartProcessing calls = %v", fake.Started)
	}
	checkInvariants(t, got)
}

func TestPipelineFailureAtEachStep(t *testing.T) {
	boom := errors.New("backend unavailable")
	tests := []struct {
		name      string
		configure func(f *remote.Fake)
	}{
		{"upload url", func(f *remote.Fake) { f.UploadURLErr = boom }},
		{"transfer", func(f *remote.Fake) { f.UploadErr = boom }},
		{"processing trigger", func(f *remote.Fake) { f.StartErr = boom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := remote.NewFake()
			tt.configure(fake)
			tracker := newTestTracker(t, fake)

			book, err := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			tracker.Wait()

			got, err := tracker.Get(book.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Status != models.StatusFailed {
				t.Fatalf("status = %s, want failed", got.Status)
			}
			if got.Error == "" {
				t.Error("failed book must carry an error message")
			}
			checkInvariants(t, got)
		})
	}
}

func TestRefreshNotReadyLeavesStateUnchanged(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	ready, err := tracker.Refresh(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if ready {
		t.Fatal("Refresh reported ready for an unfinished OCR")
	}
	got, _ := tracker.Get(book.ID)
	if got.Status != models.StatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.ProcessedText != "" {
		t.Errorf("processedText mutated: %q", got.ProcessedText)
	}
}

func TestRefreshReadyStoresExactText(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	// First poll: not ready. Second poll: text available.
	if ready, err := tracker.Refresh(context.Background(), book.ID); err != nil || ready {
		t.Fatalf("first Refresh = (%v, %v), want (false, nil)", ready, err)
	}

	fake.Ready = true
	fake.Text = "Hello world"
	ready, err := tracker.Refresh(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !ready {
		t.Fatal("Refresh did not report ready")
	}
	got, _ := tracker.Get(book.ID)
	if got.Status != models.StatusReady {
		t.Errorf("status = %s, want ready", got.Status)
	}
	if got.ProcessedText != "Hello world" {
		t.Errorf("processedText = %q, want %q", got.ProcessedText, "Hello world")
	}
	checkInvariants(t, got)
}

func TestRefreshPollErrorMarksFailed(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	fake.PollErr = &remote.RemoteError{Op: "fetchExtractedText", StatusCode: 503, Body: "backend down"}
	if _, err := tracker.Refresh(context.Background(), book.ID); err == nil {
		t.Fatal("expected error from Refresh")
	}
	got, _ := tracker.Get(book.ID)
	if got.Status != models.StatusFailed || got.Error == "" {
		t.Errorf("book after poll error = %+v, want failed with message", got)
	}
	checkInvariants(t, got)
}

func TestRefreshRejectsNonProcessingBook(t *testing.T) {
	fake := remote.NewFake()
	fake.UploadURLErr = errors.New("nope")
	tracker := newTestTracker(t, fake)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	if _, err := tracker.Refresh(context.Background(), book.ID); !errors.Is(err, library.ErrNotProcessing) {
		t.Errorf("Refresh on failed book = %v, want ErrNotProcessing", err)
	}
	if _, err := tracker.Refresh(context.Background(), "no-such-id"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("Refresh on unknown id = %v, want ErrNotFound", err)
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.BeforePoll = func() {
		close(entered)
		<-release
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tracker.Refresh(context.Background(), book.ID)
	}()
	<-entered

	fake.BeforePoll = nil
	if _, err := tracker.Refresh(context.Background(), book.ID); !errors.Is(err, library.ErrBusy) {
		t.Errorf("concurrent Refresh = %v, want ErrBusy", err)
	}
	close(release)
	<-done
}

func TestDeleteDuringInFlightPipeline(t *testing.T) {
	fake := remote.NewFake()
	entered := make(chan struct{})
	release := make(chan struct{})
	fake.BeforeUpload = func() {
		close(entered)
		<-release
	}

	store := newTestStore(t)
	tracker, err := library.NewTracker(store, fake, "guest")
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	<-entered

	if err := tracker.Delete(book.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(persisted) != 0 {
		t.Fatalf("deleted book still persisted: %+v", persisted)
	}

	// Let the pipeline finish; the deleted id must not reappear.
	close(release)
	tracker.Wait()

	if _, err := tracker.Get(book.ID); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("deleted book resurrected: %v", err)
	}
	persisted, _ = store.Load()
	if len(persisted) != 0 {
		t.Errorf("deleted book reappeared in store: %+v", persisted)
	}
}

func TestInvariantsSurvivePersistenceRoundTrip(t *testing.T) {
	fake := remote.NewFake()
	fake.Text = "Hello world"
	dbPath := filepath.Join(t.TempDir(), "library.db")

	store, err := library.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	tracker, err := library.NewTracker(store, fake, "guest")
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	ready, _ := tracker.Add(context.Background(), "file:///tmp/a.pdf", "a.pdf")
	tracker.Wait()
	if _, err := tracker.Refresh(context.Background(), ready.ID); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	fake.UploadErr = errors.New("transfer refused")
	failed, _ := tracker.Add(context.Background(), "file:///tmp/b.pdf", "b.pdf")
	tracker.Wait()
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := library.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	tracker2, err := library.NewTracker(reopened, fake, "guest")
	if err != nil {
		t.Fatalf("NewTracker after reopen failed: %v", err)
	}

	books := tracker2.Books()
	if len(books) != 2 {
		t.Fatalf("got %d books after reload, want 2", len(books))
	}
	for _, b := range books {
		checkInvariants(t, b)
	}
	gotReady, _ := tracker2.Get(ready.ID)
	if gotReady.Status != models.StatusReady || gotReady.ProcessedText != "Hello world" {
		t.Errorf("reloaded ready book = %+v", gotReady)
	}
	gotFailed, _ := tracker2.Get(failed.ID)
	if gotFailed.Status != models.StatusFailed || gotFailed.Error == "" {
		t.Errorf("reloaded failed book = %+v", gotFailed)
	}
}

func TestSummaryAndConceptsRequireReadyBook(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	if _, err := tracker.Summarize(context.Background(), book.ID); !errors.Is(err, library.ErrNotReady) {
		t.Errorf("Summarize on processing book = %v, want ErrNotReady", err)
	}

	fake.Ready = true
	fake.Text = "content"
	if _, err := tracker.Refresh(context.Background(), book.ID); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	summary, err := tracker.Summarize(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != remote.FakeSummary {
		t.Errorf("summary = %q", summary)
	}
	concepts, err := tracker.Concepts(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("Concepts failed: %v", err)
	}
	if len(concepts) == 0 {
		t.Error("expected concepts")
	}
}

// pollByPathService overrides result polling per upload path; everything else
// behaves like the embedded fake.
type pollByPathService struct {
	*remote.Fake
	poll func(ctx context.Context, uploadPath string) (string, bool, error)
}

func (s *pollByPathService) FetchExtractedText(ctx context.Context, uploadPath string) (string, bool, error) {
	return s.poll(ctx, uploadPath)
}

func TestRefreshAllIsolatesPollFailures(t *testing.T) {
	svc := &pollByPathService{Fake: remote.NewFake()}
	tracker := newTestTracker(t, svc)

	sick, _ := tracker.Add(context.Background(), "file:///tmp/a.pdf", "a.pdf")
	healthy, _ := tracker.Add(context.Background(), "file:///tmp/b.pdf", "b.pdf")
	tracker.Wait()

	svc.poll = func(ctx context.Context, uploadPath string) (string, bool, error) {
		if uploadPath == "uploads/guest/a.pdf" {
			return "", false, &remote.RemoteError{Op: "fetchExtractedText", StatusCode: 503, Body: "backend down"}
		}
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		return "", false, nil
	}

	if err := tracker.RefreshAll(context.Background(), 2); err == nil {
		t.Fatal("expected RefreshAll to report the failing book's error")
	}

	gotSick, _ := tracker.Get(sick.ID)
	if gotSick.Status != models.StatusFailed {
		t.Errorf("failing book status = %s, want failed", gotSick.Status)
	}
	gotHealthy, _ := tracker.Get(healthy.ID)
	if gotHealthy.Status != models.StatusProcessing {
		t.Errorf("healthy book status = %s, want processing", gotHealthy.Status)
	}
	if gotHealthy.Error != "" {
		t.Errorf("healthy book carries error %q", gotHealthy.Error)
	}
	checkInvariants(t, gotHealthy)
}

func TestRefreshCanceledLeavesBookProcessing(t *testing.T) {
	svc := &pollByPathService{Fake: remote.NewFake()}
	svc.poll = func(ctx context.Context, uploadPath string) (string, bool, error) {
		return "", false, ctx.Err()
	}
	tracker := newTestTracker(t, svc)

	book, _ := tracker.Add(context.Background(), "file:///tmp/report.pdf", "report.pdf")
	tracker.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tracker.Refresh(ctx, book.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("Refresh = %v, want context.Canceled", err)
	}

	got, _ := tracker.Get(book.ID)
	if got.Status != models.StatusProcessing {
		t.Errorf("status after canceled refresh = %s, want processing", got.Status)
	}
	if got.Error != "" {
		t.Errorf("canceled refresh recorded error %q", got.Error)
	}
	checkInvariants(t, got)
}

func TestRefreshAll(t *testing.T) {
	fake := remote.NewFake()
	fake.Ready = false
	tracker := newTestTracker(t, fake)

	first, _ := tracker.Add(context.Background(), "file:///tmp/a.pdf", "a.pdf")
	second, _ := tracker.Add(context.Background(), "file:///tmp/b.pdf", "b.pdf")
	tracker.Wait()

	fake.Ready = true
	fake.Text = "text"
	if err := tracker.RefreshAll(context.Background(), 2); err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	for _, id := range []string{first.ID, second.ID} {
		got, _ := tracker.Get(id)
		if got.Status != models.StatusReady {
			t.Errorf("book %s status = %s, want ready", id, got.Status)
		}
	}
}
