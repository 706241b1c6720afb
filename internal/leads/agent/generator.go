package agent

import (
	"context"
	"fmt"
	"strings"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/config"

	"google.golang.org/genai"
)

// Generator produces the editable draft body for meeting offers.
type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(ctx context.Context, cfg config.AIConfig) (*Generator, error) {
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

	return &Generator{client: client, model: cfg.GetGeminiModel()}, nil
}

var _ ports.BodyGenerator = (*Generator)(nil)

func (g *Generator) GenerateBody(ctx context.Context, submission domain.Submission, caseStudies []domain.CaseStudyRef) (string, error) {
	caseStudyHint := ""
	if len(caseStudies) > 0 {
		titles := make([]string, 0, len(caseStudies))
		for _, ref := range caseStudies {
			titles = append(titles, ref.Title)
		}
		caseStudyHint = fmt.Sprintf(", referring to these case studies where relevant: %s", strings.Join(titles, "; "))
	}

	prompt := fmt.Sprintf("%s\n\nInquiry:\nName: %s\nCompany: %s\nMessage:\n%s",
		fmt.Sprintf(generateInstruction, caseStudyHint),
		submission.Name, submission.Company, submission.Message)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate body: %w", err)
	}

	body := stripFences(resp.Text())
	if body == "" {
		return "", fmt.Errorf("generate body: empty model response")
	}
	return body, nil
}
