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
	summaryInstance *services.SummaryFunction
	once            sync.Once
	initErr         error
)

func init() {
	functions.HTTP("GetAiSummary", handleGetAiSummary)
}

// main is required by the Go Functions Framework.
func main() {}

func handleGetAiSummary(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		summaryInstance, initErr = services.NewSummary(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: Summary initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	userID, err := summaryInstance.Auth.Authorize(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Could not decode request body: %v", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := summaryInstance.Process(r.Context(), userID, &req)
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
