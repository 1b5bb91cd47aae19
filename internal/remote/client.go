package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/hywei/ebookflow/internal/gcp"
	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/paths"
)

// maxErrorBody caps how much of a failed response is carried in a RemoteError.
const maxErrorBody = 2048

// ClientOptions configures the real facade.
type ClientOptions struct {
	// BaseURL is the common prefix of the callable function endpoints, e.g.
	// "https://us-central1-myproject.cloudfunctions.net".
	BaseURL string
	// Bucket is the storage bucket holding uploads and OCR output.
	Bucket string
	// UserID names the caller for derived paths and the X-User-ID header.
	UserID string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// HTTPClient overrides http.DefaultClient; mainly for tests.
	HTTPClient *http.Client
}

// Client is the real Service implementation: callable endpoints over JSON,
// a plain PUT against the signed upload URL, and direct object reads for
// result polling. It holds no mutable state beyond the cached handles.
type Client struct {
	httpClient    *http.Client
	storageClient *storage.Client
	opts          ClientOptions
}

// NewClient builds a facade client. The storage client is used only for
// polling OCR output.
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("remote.NewClient: BaseURL and Bucket must be set")
	}
	if opts.UserID == "" {
		opts.UserID = "guest"
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:    httpClient,
		storageClient: storageClient,
		opts:          opts,
	}, nil
}

// call posts a JSON payload to a callable endpoint and decodes the reply.
func (c *Client) call(ctx context.Context, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	url := strings.TrimSuffix(c.opts.BaseURL, "/") + "/" + op
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.opts.UserID)
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) GenerateUploadURL(ctx context.Context, fileName, contentType string) (string, error) {
	var resp models.UploadURLResponse
	err := c.call(ctx, "generateUploadUrl", &models.UploadURLRequest{
		FileName:    fileName,
		ContentType: contentType,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) UploadFile(ctx context.Context, uploadURL, sourcePath, contentType string) error {
	const op = "uploadFile"
	file, err := os.Open(sourcePath)
	if err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("failed to open source file: %w", err)}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return nil
}

func (c *Client) StartProcessing(ctx context.Context, gcsPath string) error {
	var resp models.ProcessResponse
	return c.call(ctx, "processPdf", &models.ProcessRequest{GCSPath: gcsPath}, &resp)
}

func (c *Client) FetchExtractedText(ctx context.Context, uploadPath string) (string, bool, error) {
	const op = "fetchExtractedText"
	objectPath, err := paths.OCROutputObject(uploadPath)
	if err != nil {
		return "", false, &RemoteError{Op: op, Err: err}
	}

	data, err := gcp.ReadObject(ctx, c.storageClient.Bucket(c.opts.Bucket), objectPath)
	if err != nil {
		// Missing output is the normal not-ready-yet case, never a failure.
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", false, nil
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, &RemoteError{Op: op, Err: err}
	}

	text, err := paths.ExtractOCRText(data)
	if err != nil {
		return "", false, &RemoteError{Op: op, Err: err}
	}
	return text, true, nil
}

func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	var resp models.SummaryResponse
	if err := c.call(ctx, "getAiSummary", &models.SummaryRequest{Text: text}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) ExtractConcepts(ctx context.Context, text string) ([]models.Concept, error) {
	var resp models.ConceptsResponse
	if err := c.call(ctx, "getAiConcepts", &models.ConceptsRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Concepts, nil
}
