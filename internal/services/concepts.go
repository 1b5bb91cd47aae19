package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/hywei/ebookflow/internal/gcp"
	"github.com/hywei/ebookflow/internal/models"
)

// ConceptsFunction holds the dependencies for the concept-extraction logic.
// It shares the SummaryConfig shape since both talk to the same Vertex region.
type ConceptsFunction struct {
	vertexClient *gcp.VertexClient
	config       SummaryConfig
	Auth         *Authorizer
}

// NewConcepts creates a new ConceptsFunction instance.
func NewConcepts(ctx context.Context) (*ConceptsFunction, error) {
	config, err := loadSummaryConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	return &ConceptsFunction{
		vertexClient: vertexClient,
		config:       *config,
		Auth:         NewAuthorizer(config.APIKey),
	}, nil
}

// Process extracts key concepts from the supplied text.
func (f *ConceptsFunction) Process(ctx context.Context, userID string, req *models.ConceptsRequest) (*models.ConceptsResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}

	log.Printf("[User: %s] Extracting concepts (%d chars of input).", userID, len(req.Text))
	prompt := genai.Text(gcp.ConceptsUserPromptPrefix + req.Text)
	resp, err := f.vertexClient.ConceptsModel.GenerateContent(ctx, prompt)
	if err != nil {
		log.Printf("[User: %s] ERROR calling Vertex AI for concepts: %v", userID, err)
		return nil, fmt.Errorf("failed to extract concepts: %w", err)
	}

	concepts, err := DecodeConcepts(extractResponseText(resp))
	if err != nil {
		log.Printf("[User: %s] ERROR decoding model output: %v", userID, err)
		return nil, err
	}
	return &models.ConceptsResponse{Concepts: concepts}, nil
}

// StripCodeFence removes a single surrounding markdown code fence from a model
// response, if present. Models frequently wrap JSON in ```json fences even
// when told not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeConcepts parses a model response into a concept list. A decode failure
// after fence stripping carries the raw response for diagnosis.
func DecodeConcepts(raw string) ([]models.Concept, error) {
	stripped := StripCodeFence(raw)
	var concepts []models.Concept
	if err := json.Unmarshal([]byte(stripped), &concepts); err != nil {
		return nil, fmt.Errorf("failed to decode concepts from model output: %w (raw response: %q)", err, raw)
	}
	return concepts, nil
}
