package domain

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with one designated correct option.
// CorrectOptionID may dangle (reference no option); such a question can
// never be answered correctly, and the scorer tolerates it.
type Question struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
}

// Quiz is the immutable-for-the-session quiz document.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"durationMinutes"`
	Questions       []Question `json:"questions"`
}

// Phase is the lifecycle state of a quiz-taking session.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseFinalizing Phase = "finalizing"
	PhaseFinished   Phase = "finished"
)

// AnswerDetail records the outcome of one question for the review screen.
type AnswerDetail struct {
	QuestionID     string `json:"questionId"`
	Question       string `json:"question"`
	SelectedAnswer string `json:"selectedAnswer"` // option text, or "Not Answered"
	CorrectAnswer  string `json:"correctAnswer"`  // option text, or "N/A" when the correct id dangles
	IsCorrect      bool   `json:"isCorrect"`
}

// ScoreResult is the final score of a session. Computed once, immutable.
type ScoreResult struct {
	Percentage int            `json:"percentage"`
	Details    []AnswerDetail `json:"details"`
}

// FeedbackStatus is the lifecycle of the personalized-feedback request.
type FeedbackStatus string

const (
	FeedbackIdle      FeedbackStatus = "idle"
	FeedbackPending   FeedbackStatus = "pending"
	FeedbackSucceeded FeedbackStatus = "succeeded"
	FeedbackFailed    FeedbackStatus = "failed"
)

// FeedbackState tracks the single feedback request issued after scoring.
type FeedbackState struct {
	Status FeedbackStatus `json:"status"`
	Text   string         `json:"text,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// SessionView is the observer snapshot exposed to the presentation layer.
type SessionView struct {
	SessionID        string         `json:"sessionId"`
	QuizID           string         `json:"quizId"`
	QuizTitle        string         `json:"quizTitle"`
	QuestionIndex    int            `json:"questionIndex"`
	QuestionCount    int            `json:"questionCount"`
	Question         *Question      `json:"question,omitempty"`
	SelectedOptionID string         `json:"selectedOptionId,omitempty"`
	RemainingSeconds int            `json:"remainingSeconds"`
	Phase            Phase          `json:"phase"`
	Score            *ScoreResult   `json:"score,omitempty"`
	Feedback         *FeedbackState `json:"feedback,omitempty"`
}
