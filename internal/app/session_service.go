package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
)

// SessionRepository abstracts how live sessions are tracked (in-memory,
// Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultSink persists the final score keyed by participant and quiz.
// Writes are fire-and-forget from the engine's perspective.
type ResultSink interface {
	SaveResult(ctx context.Context, participantID, quizID string, percentage int) error
}

// Options tunes session behavior. Zero values select production defaults.
type Options struct {
	// TickInterval is the clock period, one second unless overridden
	// (tests use short intervals for deterministic timeouts).
	TickInterval time.Duration
	// FeedbackTimeout bounds the feedback generator call.
	FeedbackTimeout time.Duration
}

// SessionService contains the quiz-taking use cases.
type SessionService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	sink     ResultSink
	feedback FeedbackGenerator
	opts     Options
}

func NewSessionService(sessions SessionRepository, quizzes QuizRepository, sink ResultSink, feedback FeedbackGenerator, opts Options) *SessionService {
	return &SessionService{
		sessions: sessions,
		quizzes:  quizzes,
		sink:     sink,
		feedback: feedback,
		opts:     opts,
	}
}

// NewSession is exported for infrastructure layers and tests that need to
// seed sessions without going through the service. The clock is not started.
func NewSession(id string, quiz domain.Quiz) *Session {
	return newSession(sessionConfig{id: id, quiz: quiz})
}

// Start loads the quiz, creates a session for the participant, and starts
// its clock. Quizzes with no questions are not startable.
func (s *SessionService) Start(ctx context.Context, participantID, participantName, quizID string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	quiz = normalizeQuiz(quiz)
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizHasNoQuestions
	}

	session := newSession(sessionConfig{
		id:              uuid.NewString(),
		participantID:   participantID,
		participantName: participantName,
		quiz:            quiz,
		tickInterval:    s.opts.TickInterval,
		feedback:        s.feedback,
		feedbackTimeout: s.opts.FeedbackTimeout,
		sink:            s.sink,
	})
	s.sessions.Put(session)
	session.start()
	return session, nil
}

// SelectAnswer records an answer for the session, returning the locked
// option id for the question.
func (s *SessionService) SelectAnswer(sessionID, questionID, optionID string) (string, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.SelectAnswer(questionID, optionID)
}

// Advance moves the session to the next question or finalizes it.
func (s *SessionService) Advance(sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Advance()
}

// Subscribe returns a channel of session snapshots for the observer API.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(sessionID string) (<-chan domain.SessionView, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Stop detaches a session: its clock halts, late feedback deliveries become
// stale, and it is removed from the repository.
func (s *SessionService) Stop(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.stop()
	s.sessions.Delete(sessionID)
}

// normalizeQuiz applies explicit defaults so internal logic never
// special-cases missing fields in stored documents.
func normalizeQuiz(quiz domain.Quiz) domain.Quiz {
	if quiz.Questions == nil {
		quiz.Questions = []domain.Question{}
	}
	if quiz.DurationMinutes <= 0 {
		quiz.DurationMinutes = 1
	}
	return quiz
}
