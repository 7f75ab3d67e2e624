package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"quiz-session-service/internal/app"
)

const defaultModel = "claude-haiku-4-5-20251001"

const systemPrompt = `You are an expert educator providing personalized feedback to students on their quiz performance.
Based on the student's performance, provide constructive and specific feedback. Focus on areas where the student can improve and offer actionable suggestions. Be encouraging and supportive.
Given the quiz score, encourage the student and provide feedback.
If the student had any incorrect answers, ensure the student understands those answers.
Do not include a greeting or introduction. Jump straight into the feedback.
End the feedback with an encouraging statement.
Format the feedback in markdown.`

// FeedbackGenerator implements app.FeedbackGenerator using the Anthropic SDK.
type FeedbackGenerator struct {
	client *anthropic.Client
	model  string
}

// NewFeedbackGenerator creates a generator. Model falls back to a default
// when empty.
func NewFeedbackGenerator(apiKey, model string) (*FeedbackGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &FeedbackGenerator{client: &client, model: model}, nil
}

func (g *FeedbackGenerator) Generate(ctx context.Context, req app.FeedbackRequest) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(buildPrompt(req)),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w", err)
	}
	return extractText(msg)
}

func buildPrompt(req app.FeedbackRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student Name: %s\n", req.StudentName)
	fmt.Fprintf(&b, "Quiz Name: %s\n", req.QuizTitle)
	fmt.Fprintf(&b, "Score: %d\n", req.Percentage)
	fmt.Fprintf(&b, "Correct Answers: %s\n", strings.Join(req.CorrectQuestions, ", "))
	fmt.Fprintf(&b, "Incorrect Answers: %s\n", strings.Join(req.IncorrectQuestions, ", "))
	return b.String()
}

func extractText(msg *anthropic.Message) (string, error) {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
