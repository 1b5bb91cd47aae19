package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/hywei/ebookflow/internal/gcp"
	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/paths"
)

// signedURLTTL bounds how long an issued upload URL stays usable.
const signedURLTTL = 15 * time.Minute

// UploadURLConfig holds all configuration for the upload-url service.
type UploadURLConfig struct {
	Bucket string
	APIKey string
}

// UploadURLFunction holds the dependencies for the signed-URL issuance logic.
type UploadURLFunction struct {
	storageClient *storage.Client
	config        UploadURLConfig
	Auth          *Authorizer
}

func loadUploadURLConfig() (*UploadURLConfig, error) {
	bucket := gcp.GetEnv("GCS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET environment variable must be set")
	}
	return &UploadURLConfig{
		Bucket: bucket,
		APIKey: gcp.GetEnv("API_KEY", ""),
	}, nil
}

// NewUploadURL creates a new UploadURLFunction instance.
func NewUploadURL(ctx context.Context) (*UploadURLFunction, error) {
	config, err := loadUploadURLConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &UploadURLFunction{
		storageClient: storageClient,
		config:        *config,
		Auth:          NewAuthorizer(config.APIKey),
	}, nil
}

// Process issues a V4 signed PUT URL for the caller's upload location.
func (f *UploadURLFunction) Process(ctx context.Context, userID string, req *models.UploadURLRequest) (*models.UploadURLResponse, error) {
	if req.FileName == "" || req.ContentType == "" {
		return nil, fmt.Errorf("%w: fileName and contentType are required", ErrInvalidArgument)
	}

	objectPath := paths.UploadObject(userID, req.FileName)
	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     time.Now().Add(signedURLTTL),
		ContentType: req.ContentType,
	}

	url, err := f.storageClient.Bucket(f.config.Bucket).SignedURL(objectPath, opts)
	if err != nil {
		log.Printf("[User: %s] ERROR creating signed URL for %s: %v", userID, objectPath, err)
		return nil, fmt.Errorf("failed to create signed URL: %w", err)
	}

	log.Printf("[User: %s] Issued upload URL for %s", userID, objectPath)
	return &models.UploadURLResponse{URL: url}, nil
}
