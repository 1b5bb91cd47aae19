package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/services"
)

var (
	processorInstance *services.ProcessorFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The same logic serves two triggers: the storage-finalize event fired on
	// every upload, and a manual HTTP call carrying a gcsPath.
	functions.CloudEvent("ProcessPdfEvent", processPdfEvent)
	functions.HTTP("ProcessPdf", handleProcessPdf)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() error {
	once.Do(func() {
		processorInstance, initErr = services.NewProcessor(context.Background())
	})
	return initErr
}

// processPdfEvent is the CloudEvent entry point for storage finalize events.
func processPdfEvent(ctx context.Context, e cloudevents.Event) error {
	if err := initialize(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return processorInstance.Process(ctx, gcsEvent)
}

// handleProcessPdf is the HTTP entry point for manual triggering.
func handleProcessPdf(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	if _, err := processorInstance.Auth.Authorize(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := processorInstance.ProcessPath(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidArgument) {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
