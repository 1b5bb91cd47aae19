package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/hywei/ebookflow/internal/models"
	"github.com/hywei/ebookflow/internal/services"
)

var (
	uploadURLInstance *services.UploadURLFunction
	once              sync.Once
	initErr           error
)

func init() {
	// Register the HTTP function with the framework.
	// "GenerateUploadUrl" is the entry point name we'll see in GCP.
	functions.HTTP("GenerateUploadUrl", handleGenerateUploadURL)
}

// main is required by the Go Functions Framework.
func main() {}

// handleGenerateUploadURL is the HTTP handler.
func handleGenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		uploadURLInstance, initErr = services.NewUploadURL(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: Upload-URL initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	userID, err := uploadURLInstance.Auth.Authorize(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.UploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Could not decode request body: %v", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := uploadURLInstance.Process(r.Context(), userID, &req)
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
		log.Printf("ERROR: Failed to write response: %v", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
