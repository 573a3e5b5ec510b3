package classifier

import (
	"context"

	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Classifier = (*limitedClassifier)(nil)

// limitedClassifier bounds concurrent provider calls with a semaphore.
// The batch pipeline calls sequentially, but queue-runner handlers may
// classify in parallel with it.
type limitedClassifier struct {
	inner adapter.Classifier
	sem   chan struct{}
}

func NewLimited(inner adapter.Classifier, maxConcurrent int) adapter.Classifier {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedClassifier{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedClassifier) Classify(ctx context.Context, posting adapter.PostingText) (*model.AnalysisVerdict, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Classify(ctx, posting)
}

func (l *limitedClassifier) CountTokens(ctx context.Context, posting adapter.PostingText) (int, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.CountTokens(ctx, posting)
}
