package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz document could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizHasNoQuestions rejects starting a session on an empty quiz.
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrQuestionUnanswered rejects advancing past an unanswered question.
	ErrQuestionUnanswered = errors.New("current question not answered")
	// ErrSessionFinished rejects commands arriving after finalization.
	ErrSessionFinished = errors.New("quiz session already finished")
)
