// Package agent implements the Gemini-backed classification and draft
// generation services.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/config"

	"google.golang.org/genai"
)

// Classifier performs a single-shot structured classification call. No
// session state is kept between leads; every inquiry is judged on its own.
type Classifier struct {
	client *genai.Client
	model  string
}

func NewClassifier(ctx context.Context, cfg config.AIConfig) (*Classifier, error) {
	if !cfg.IsAIEnabled() {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	return &Classifier{client: client, model: cfg.GetGeminiModel()}, nil
}

var _ ports.Classifier = (*Classifier)(nil)

type classifyResponse struct {
	Classification   string  `json:"classification"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`
	ExistingCustomer bool    `json:"existingCustomer"`
	CRMRef           *string `json:"crmRef"`
}

func (c *Classifier) Classify(ctx context.Context, submission domain.Submission) (ports.ClassificationResult, error) {
	prompt := fmt.Sprintf("%s\n\nInquiry:\nName: %s\nEmail: %s\nCompany: %s\nMessage:\n%s",
		classifyInstruction, submission.Name, submission.Email, submission.Company, submission.Message)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return ports.ClassificationResult{}, fmt.Errorf("classify: %w", err)
	}

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &parsed); err != nil {
		return ports.ClassificationResult{}, fmt.Errorf("classify: malformed model response: %w", err)
	}

	classification, err := domain.ParseClassification(parsed.Classification)
	if err != nil {
		return ports.ClassificationResult{}, fmt.Errorf("classify: %w", err)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return ports.ClassificationResult{}, fmt.Errorf("classify: confidence %v out of range", parsed.Confidence)
	}

	return ports.ClassificationResult{
		Classification:   classification,
		Confidence:       parsed.Confidence,
		Reasoning:        parsed.Reasoning,
		ExistingCustomer: parsed.ExistingCustomer,
		CRMRef:           parsed.CRMRef,
	}, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite the response mime type.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
