package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/v2/apiv1"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hywei/ebookflow/internal/gcp"
	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/paths"
)

// ProcessorConfig holds all configuration for the pdf-processor service.
type ProcessorConfig struct {
	ProjectID      string
	Bucket         string
	CollectionName string
	APIKey         string
}

// ProcessorFunction holds the dependencies for the OCR trigger logic.
type ProcessorFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	visionClient    *vision.ImageAnnotatorClient
	config          ProcessorConfig
	Auth            *Authorizer
}

// GCSEvent is the slice of the storage-finalize event payload we consume.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// NewProcessor creates a new ProcessorFunction instance.
func NewProcessor(ctx context.Context) (*ProcessorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := ProcessorConfig{
		ProjectID:      projectID,
		Bucket:         gcp.GetEnv("GCS_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "ocr_jobs"),
		APIKey:         gcp.GetEnv("API_KEY", ""),
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET environment variable must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	visionClient, err := gcp.NewVisionClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}

	f := &ProcessorFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		visionClient:    visionClient,
		config:          config,
		Auth:            NewAuthorizer(config.APIKey),
	}
	slog.Info("PDF processor logic initialized.", "bucket", config.Bucket, "collection", config.CollectionName)
	return f, nil
}

// SkipReason explains why an object was not submitted for OCR. Skips are clean
// exits, not failures: buckets receive all kinds of finalize events.
func SkipReason(bucket, name, contentType, expectedBucket string) string {
	if bucket != expectedBucket {
		return fmt.Sprintf("object is in bucket %q, expected %q", bucket, expectedBucket)
	}
	if name == "" || !paths.IsUpload(name) {
		return fmt.Sprintf("object %q is not in the uploads folder", name)
	}
	if contentType != "" && !strings.HasPrefix(contentType, "application/pdf") {
		return fmt.Sprintf("object %q has content type %q, not a PDF", name, contentType)
	}
	return ""
}

// Process handles a storage-finalize event for a freshly uploaded object.
func (f *ProcessorFunction) Process(ctx context.Context, e GCSEvent) error {
	if reason := SkipReason(e.Bucket, e.Name, e.ContentType, f.config.Bucket); reason != "" {
		slog.Info("Skipping object.", "gcsObject", e.Name, "reason", reason)
		return nil
	}
	_, err := f.startOCR(ctx, e.Name)
	return err
}

// ProcessPath handles the manual HTTP trigger carrying an object path inside
// the configured bucket. The content type is unknown here; pdfcpu validation
// is the gate instead.
func (f *ProcessorFunction) ProcessPath(ctx context.Context, req *models.ProcessRequest) (*models.ProcessResponse, error) {
	if req.GCSPath == "" {
		return nil, fmt.Errorf("%w: gcsPath is required", ErrInvalidArgument)
	}
	objectPath := strings.TrimPrefix(req.GCSPath, fmt.Sprintf("gs://%s/", f.config.Bucket))
	if !paths.IsUpload(objectPath) {
		return nil, fmt.Errorf("%w: %q is not under the uploads folder", ErrInvalidArgument, objectPath)
	}
	executionID, err := f.startOCR(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	return &models.ProcessResponse{Status: "accepted", ExecutionID: executionID}, nil
}

// startOCR validates the uploaded PDF, records the job in Firestore, and
// submits the async Vision batch. Completion is asynchronous and external;
// success here means "accepted". The returned execution id tags every log
// line and the Firestore job record for this run.
func (f *ProcessorFunction) startOCR(ctx context.Context, objectPath string) (string, error) {
	executionID := uuid.NewString()
	logCtx := slog.With("gcsObject", objectPath, "executionId", executionID)
	logCtx.Info("Processing uploaded file.")

	outputPrefix, err := paths.OCROutputPrefix(objectPath)
	if err != nil {
		logCtx.Error("Failed to derive output prefix", "error", err)
		return "", err
	}

	tempDir, err := os.MkdirTemp("", "pdf-processor-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePdfPath := filepath.Join(tempDir, "source.pdf")
	if err := f.downloadObject(ctx, objectPath, sourcePdfPath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return "", err
	}

	pageCount, err := validatePDF(sourcePdfPath)
	if err != nil {
		logCtx.Info("Object is not a processable PDF. Skipping.", "error", err)
		return executionID, nil
	}

	docRef, err := f.createJob(ctx, objectPath, pageCount, executionID)
	if err != nil {
		logCtx.Error("Failed to create job record", "error", err)
		return "", err
	}
	logCtx = logCtx.With("jobId", docRef.ID)
	logCtx.Info("Created OCR job record in Firestore.", "pageCount", pageCount)

	sourceURI := fmt.Sprintf("gs://%s/%s", f.config.Bucket, objectPath)
	destinationURI := fmt.Sprintf("gs://%s/%s", f.config.Bucket, outputPrefix)
	opName, err := gcp.StartDocumentOCR(ctx, f.visionClient, sourceURI, destinationURI)
	if err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to start OCR operation", err)
	}

	if _, err := docRef.Update(ctx, []firestore.Update{
		{Path: "operationName", Value: opName},
	}); err != nil {
		logCtx.Warn("Failed to record operation name.", "error", err)
	}
	logCtx.Info("Started OCR operation.", "operation", opName, "destination", destinationURI)
	return executionID, nil
}

func (f *ProcessorFunction) createJob(ctx context.Context, objectPath string, pageCount int, executionID string) (*firestore.DocumentRef, error) {
	job := models.OCRJob{
		GCSPath:          objectPath,
		OriginalFilename: filepath.Base(objectPath),
		Status:           models.JobStatusProcessing,
		PageCount:        pageCount,
		ExecutionID:      executionID,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}
	return docRef, nil
}

func (f *ProcessorFunction) downloadObject(ctx context.Context, objectPath, destPath string) error {
	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(f.config.Bucket), objectPath)
	if err != nil {
		return fmt.Errorf("failed to download gs://%s/%s: %w", f.config.Bucket, objectPath, err)
	}
	if err := os.WriteFile(destPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	return nil
}

// validatePDF confirms the file parses as a PDF and returns its page count.
func validatePDF(path string) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return 0, fmt.Errorf("pdf validation failed: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

func (f *ProcessorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	updates := []firestore.Update{
		{Path: "status", Value: models.JobStatusFailed},
		{Path: "errorDetails", Value: fullError},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
