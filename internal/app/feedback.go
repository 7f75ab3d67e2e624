package app

import (
	"context"
	"time"
)

// FallbackFeedback replaces the generated paragraph whenever the generator
// errors out or times out. The score itself is never affected.
const FallbackFeedback = "Could not generate feedback at this time."

// DefaultFeedbackTimeout bounds the single feedback call so a hung generator
// cannot leave the state Pending forever.
const DefaultFeedbackTimeout = 30 * time.Second

// FeedbackRequest carries the scored-session context handed to the
// personalized-feedback generator.
type FeedbackRequest struct {
	StudentName        string
	QuizTitle          string
	Percentage         int
	CorrectQuestions   []string
	IncorrectQuestions []string
}

// FeedbackGenerator produces one natural-language feedback paragraph per
// finalized session. Implementations are expected to honor ctx cancellation.
type FeedbackGenerator interface {
	Generate(ctx context.Context, req FeedbackRequest) (string, error)
}

// FeedbackGeneratorFunc adapts a function to the FeedbackGenerator interface.
type FeedbackGeneratorFunc func(ctx context.Context, req FeedbackRequest) (string, error)

func (f FeedbackGeneratorFunc) Generate(ctx context.Context, req FeedbackRequest) (string, error) {
	return f(ctx, req)
}
