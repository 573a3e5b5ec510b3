package classifier

import (
	"context"
	"strings"
	"time"

	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
)

var _ adapter.Classifier = (*NoopClassifier)(nil)

// NoopClassifier implements the port for local/dev runs without an AI
// provider. It does a plain keyword scan so the pipeline is exercisable
// end to end.
type NoopClassifier struct{}

func NewNoopClassifier() *NoopClassifier { return &NoopClassifier{} }

func (n *NoopClassifier) Classify(ctx context.Context, posting adapter.PostingText) (*model.AnalysisVerdict, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	text := strings.ToLower(posting.Title + " " + posting.Description)
	hasOutreach := strings.Contains(text, "outreach.io")
	hasSalesloft := strings.Contains(text, "salesloft")

	v := &model.AnalysisVerdict{
		ToolDetected: model.ToolNone,
		SignalType:   model.SignalNone,
		Confidence:   model.ConfidenceLow,
	}
	switch {
	case hasOutreach && hasSalesloft:
		v.UsesTool, v.ToolDetected = true, model.ToolBoth
	case hasOutreach:
		v.UsesTool, v.ToolDetected = true, model.ToolOutreach
	case hasSalesloft:
		v.UsesTool, v.ToolDetected = true, model.ToolSalesloft
	}
	if v.UsesTool {
		v.SignalType = model.SignalMention
		v.Context = "keyword match"
	}
	return v, nil
}

func (n *NoopClassifier) CountTokens(ctx context.Context, posting adapter.PostingText) (int, error) {
	// Rough whitespace estimate; good enough for dev.
	return len(strings.Fields(posting.Title)) + len(strings.Fields(posting.Description)), nil
}
