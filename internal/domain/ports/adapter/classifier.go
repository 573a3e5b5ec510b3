package adapter

import (
	"context"

	"salestool-radar/internal/domain/model"
)

// PostingText is the slice of a posting the classifier sees.
type PostingText struct {
	Company     string
	Title       string
	Description string
}

// Classifier is the port for the external analysis engine. Implementations
// validate the response schema at this boundary: a malformed or partial
// verdict surfaces as an error wrapping domain.ErrAnalysisFailed, never as
// undefined fields.
type Classifier interface {
	Classify(ctx context.Context, posting PostingText) (*model.AnalysisVerdict, error)

	// CountTokens returns the prompt token count for a posting
	// (provider-specific counting; best-effort where exact is unavailable).
	CountTokens(ctx context.Context, posting PostingText) (int, error)
}
