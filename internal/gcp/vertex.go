package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Summary Model Prompts ---
const SummarySystemPrompt = "You are a reading assistant. Your task is to summarize extracted book text for a reader who wants a quick, faithful overview. Do not invent content that is not in the text."
const SummaryUserPromptPrefix = `Summarize the following text in a few concise paragraphs:

`

// --- Concepts Model Prompts ---
const ConceptsSystemPrompt = "You are a study assistant. Your task is to extract the key concepts from a passage of text and explain each one briefly. You must output your response as a valid JSON array."
const ConceptsUserPromptPrefix = `Extract the key concepts from the following text. For each concept, provide a title and a brief explanation.

Follow these rules precisely:
1.  Create a JSON object for each concept.
2.  Each JSON object must have exactly two keys:
    - "concept": a short title for the concept.
    - "explanation": one or two sentences explaining it in plain language.
3.  The final output MUST be a single, valid JSON array of these objects. Do not include any text before or after the JSON array.

Text:

`

// VertexClient holds the pre-configured generative models for our app.
type VertexClient struct {
	SummaryModel  *genai.GenerativeModel
	ConceptsModel *genai.GenerativeModel
	baseClient    *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the summary model ---
	summaryModel := baseClient.GenerativeModel("gemini-1.5-pro")
	summaryModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarySystemPrompt)},
	}

	// --- Configure the concepts model ---
	// The response MIME type is deliberately left as text: the decoder strips
	// an optional code fence before parsing, and that path stays exercised.
	conceptsModel := baseClient.GenerativeModel("gemini-1.5-pro")
	conceptsModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ConceptsSystemPrompt)},
	}
	conceptsModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
	}

	return &VertexClient{
		SummaryModel:  summaryModel,
		ConceptsModel: conceptsModel,
		baseClient:    baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
