package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Classifier = (*OpenAIClassifier)(nil)

// OpenAIClassifier implements the analysis engine port with the Chat
// Completions API. Long descriptions are truncated to a token budget
// before the call so one oversized posting cannot blow the context
// window.
type OpenAIClassifier struct {
	client          openai.Client
	model           string
	maxPromptTokens int
	enc             *tiktoken.Tiktoken
}

func NewOpenAIClassifier(apiKey, model string, maxPromptTokens int) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxPromptTokens <= 0 {
		maxPromptTokens = 6000
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model name: fall back to the encoding GPT-4-class
		// models share.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("tiktoken: %w", err)
		}
	}
	return &OpenAIClassifier{
		client:          openai.NewClient(option.WithAPIKey(apiKey)),
		model:           model,
		maxPromptTokens: maxPromptTokens,
		enc:             enc,
	}, nil
}

func (o *OpenAIClassifier) Classify(ctx context.Context, posting adapter.PostingText) (*model.AnalysisVerdict, error) {
	posting.Description = o.truncate(posting.Description)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(posting)),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", domain.ErrAnalysisFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", domain.ErrAnalysisFailed)
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

func (o *OpenAIClassifier) CountTokens(ctx context.Context, posting adapter.PostingText) (int, error) {
	full := systemPrompt + "\n" + userPrompt(posting)
	return len(o.enc.Encode(full, nil, nil)), nil
}

// truncate caps the description to the configured token budget, leaving
// headroom for the system prompt and the company/title lines.
func (o *OpenAIClassifier) truncate(description string) string {
	budget := o.maxPromptTokens - 700
	if budget <= 0 {
		return description
	}
	ids := o.enc.Encode(description, nil, nil)
	if len(ids) <= budget {
		return description
	}
	return o.enc.Decode(ids[:budget])
}
