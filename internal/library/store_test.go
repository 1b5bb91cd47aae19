package library_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hywei/ebookflow/internal/library"
	"github.com/hywei/ebookflow/internal/models"
)

func TestStoreLoadEmpty(t *testing.T) {
	store := newTestStore(t)
	books, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("fresh store returned %d books", len(books))
	}
}

func TestStoreSaveOverwritesWholeCollection(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	first := []models.Book{
		{ID: "1-a.pdf", FileName: "a.pdf", Status: models.StatusNew, CreatedAt: now},
		{ID: "2-b.pdf", FileName: "b.pdf", Status: models.StatusNew, CreatedAt: now},
	}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A later save fully replaces the earlier snapshot; nothing merges.
	second := []models.Book{
		{ID: "3-c.pdf", FileName: "c.pdf", Status: models.StatusProcessing, GCSUploadPath: "uploads/guest/c.pdf", CreatedAt: now},
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	books, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(books) != 1 || books[0].ID != "3-c.pdf" {
		t.Fatalf("Load = %+v, want only the second snapshot", books)
	}
	if books[0].Status != models.StatusProcessing {
		t.Errorf("status = %s", books[0].Status)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")
	store, err := library.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	want := []models.Book{{
		ID:            "1-a.pdf",
		FileName:      "a.pdf",
		Status:        models.StatusReady,
		GCSUploadPath: "uploads/guest/a.pdf",
		ProcessedText: "full text",
		CreatedAt:     time.Now(),
	}}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := library.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	books, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(books) != 1 || books[0].ProcessedText != "full text" || books[0].Status != models.StatusReady {
		t.Fatalf("Load after reopen = %+v", books)
	}
}
