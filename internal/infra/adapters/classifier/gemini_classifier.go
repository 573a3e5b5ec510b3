package classifier

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
)

var _ adapter.Classifier = (*GeminiClassifier)(nil)

// GeminiClassifier implements the analysis engine port with the official
// Gemini SDK. Used as the fallback provider when no OpenAI key is set.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

func NewGeminiClassifier(ctx context.Context, apiKey, baseURL, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClassifier{client: c, model: model}, nil
}

func (g *GeminiClassifier) Classify(ctx context.Context, posting adapter.PostingText) (*model.AnalysisVerdict, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: userPrompt(posting)}},
	}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", domain.ErrAnalysisFailed, err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return nil, fmt.Errorf("%w: gemini returned no content", domain.ErrAnalysisFailed)
	}
	return parseVerdict(text)
}

func (g *GeminiClassifier) CountTokens(ctx context.Context, posting adapter.PostingText) (int, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: systemPrompt + "\n" + userPrompt(posting)}},
	}}
	resp, err := g.client.Models.CountTokens(ctx, g.model, contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}
