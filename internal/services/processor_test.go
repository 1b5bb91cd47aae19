package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/hywei/ebookflow/internal/models"
)

func TestSkipReason(t *testing.T) {
	const bucket = "ebookflow-prod"
	tests := []struct {
		name        string
		objBucket   string
		objName     string
		contentType string
		wantSkip    bool
	}{
		{"pdf in uploads", bucket, "uploads/guest/report.pdf", "application/pdf", false},
		{"content type with charset", bucket, "uploads/guest/report.pdf", "application/pdf; charset=binary", false},
		{"missing content type passes the gate", bucket, "uploads/guest/report.pdf", "", false},
		{"wrong bucket", "other-bucket", "uploads/guest/report.pdf", "application/pdf", true},
		{"not in uploads", bucket, "processed/guest/report.pdf", "application/pdf", true},
		{"ocr output object must not re-trigger", bucket, "processed/guest/report_ocr_output/output-1-to-100.json", "application/json", true},
		{"not a pdf", bucket, "uploads/guest/notes.txt", "text/plain", true},
		{"empty name", bucket, "", "application/pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := SkipReason(tt.objBucket, tt.objName, tt.contentType, bucket)
			if got := reason != ""; got != tt.wantSkip {
				t.Errorf("SkipReason(%q, %q, %q) = %q, wantSkip %v", tt.objBucket, tt.objName, tt.contentType, reason, tt.wantSkip)
			}
		})
	}
}

// newStubStorageClient answers every object read with the given status and body.
func newStubStorageClient(t *testing.T, status int, body string) *storage.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	sc, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("storage.NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

func TestProcessPathReturnsExecutionID(t *testing.T) {
	f := &ProcessorFunction{
		// The object is not a valid PDF, so the run ends at the validation
		// gate as a clean skip. The response still identifies the run.
		storageClient: newStubStorageClient(t, http.StatusOK, "not a pdf"),
		config:        ProcessorConfig{Bucket: "ebookflow-prod"},
	}

	resp, err := f.ProcessPath(context.Background(), &models.ProcessRequest{
		GCSPath: "gs://ebookflow-prod/uploads/guest/report.pdf",
	})
	if err != nil {
		t.Fatalf("ProcessPath failed: %v", err)
	}
	if resp.Status != "accepted" {
		t.Errorf("status = %q, want accepted", resp.Status)
	}
	if resp.ExecutionID == "" {
		t.Error("response is missing the execution id")
	}
}

func TestProcessPathRejectsBadPaths(t *testing.T) {
	f := &ProcessorFunction{config: ProcessorConfig{Bucket: "ebookflow-prod"}}
	for _, gcsPath := range []string{"", "processed/guest/report.pdf"} {
		if _, err := f.ProcessPath(context.Background(), &models.ProcessRequest{GCSPath: gcsPath}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ProcessPath(%q) = %v, want ErrInvalidArgument", gcsPath, err)
		}
	}
}

func TestAuthorizer(t *testing.T) {
	t.Run("open mode falls back to guest", func(t *testing.T) {
		a := NewAuthorizer("")
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		user, err := a.Authorize(r)
		if err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
		if user != GuestUser {
			t.Errorf("user = %q, want %q", user, GuestUser)
		}
	})

	t.Run("open mode honors user header", func(t *testing.T) {
		a := NewAuthorizer("")
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("X-User-ID", "alice")
		user, err := a.Authorize(r)
		if err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
		if user != "alice" {
			t.Errorf("user = %q, want alice", user)
		}
	})

	t.Run("enforced mode rejects missing key", func(t *testing.T) {
		a := NewAuthorizer("secret")
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if _, err := a.Authorize(r); err == nil {
			t.Fatal("expected unauthenticated error")
		}
	})

	t.Run("enforced mode rejects wrong key", func(t *testing.T) {
		a := NewAuthorizer("secret")
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Authorization", "Bearer wrong")
		if _, err := a.Authorize(r); err == nil {
			t.Fatal("expected unauthenticated error")
		}
	})

	t.Run("enforced mode accepts key", func(t *testing.T) {
		a := NewAuthorizer("secret")
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Authorization", "Bearer secret")
		r.Header.Set("X-User-ID", "bob")
		user, err := a.Authorize(r)
		if err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
		if user != "bob" {
			t.Errorf("user = %q, want bob", user)
		}
	})
}
