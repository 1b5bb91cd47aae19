package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/hywei/ebookflow/internal/gcp"
	"github.com/hywei/ebookflow/internal/models"
)

// SummaryConfig holds all configuration for the ai-summary service.
type SummaryConfig struct {
	ProjectID      string
	VertexAIRegion string
	APIKey         string
}

// SummaryFunction holds the dependencies for the summarization logic.
type SummaryFunction struct {
	vertexClient *gcp.VertexClient
	config       SummaryConfig
	Auth         *Authorizer
}

func loadSummaryConfig() (*SummaryConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return &SummaryConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		APIKey:         gcp.GetEnv("API_KEY", ""),
	}, nil
}

// NewSummary creates a new SummaryFunction instance.
func NewSummary(ctx context.Context) (*SummaryFunction, error) {
	config, err := loadSummaryConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	return &SummaryFunction{
		vertexClient: vertexClient,
		config:       *config,
		Auth:         NewAuthorizer(config.APIKey),
	}, nil
}

// Process generates a summary of the supplied text.
func (f *SummaryFunction) Process(ctx context.Context, userID string, req *models.SummaryRequest) (*models.SummaryResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}

	log.Printf("[User: %s] Generating summary (%d chars of input).", userID, len(req.Text))
	prompt := genai.Text(gcp.SummaryUserPromptPrefix + req.Text)
	resp, err := f.vertexClient.SummaryModel.GenerateContent(ctx, prompt)
	if err != nil {
		log.Printf("[User: %s] ERROR calling Vertex AI for summary: %v", userID, err)
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	summary := extractResponseText(resp)
	if summary == "" {
		return nil, fmt.Errorf("model returned an empty summary")
	}
	return &models.SummaryResponse{Summary: summary}, nil
}

// extractResponseText concatenates the text parts of a model response.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}
