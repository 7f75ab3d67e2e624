package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// Session drives one participant's attempt at one quiz from start to scored
// completion. Two event sources feed it: the countdown clock it owns and the
// participant's answer/advance commands. Both are serialized under mu, so a
// tick and a user action are never applied concurrently.
type Session struct {
	id              string
	participantID   string
	participantName string
	quiz            domain.Quiz
	tickInterval    time.Duration
	feedback        FeedbackGenerator
	feedbackTimeout time.Duration
	sink            ResultSink

	stopClock chan struct{}
	stopOnce  sync.Once

	mu               sync.Mutex
	index            int
	remainingSeconds int
	ledger           map[string]string
	phase            domain.Phase
	score            *domain.ScoreResult
	feedbackState    domain.FeedbackState
	feedbackSeq      uint64
	subscribers      map[chan domain.SessionView]struct{}
}

type sessionConfig struct {
	id              string
	participantID   string
	participantName string
	quiz            domain.Quiz
	tickInterval    time.Duration
	feedback        FeedbackGenerator
	feedbackTimeout time.Duration
	sink            ResultSink
}

func newSession(cfg sessionConfig) *Session {
	if cfg.tickInterval <= 0 {
		cfg.tickInterval = time.Second
	}
	if cfg.feedbackTimeout <= 0 {
		cfg.feedbackTimeout = DefaultFeedbackTimeout
	}
	return &Session{
		id:               cfg.id,
		participantID:    cfg.participantID,
		participantName:  cfg.participantName,
		quiz:             cfg.quiz,
		tickInterval:     cfg.tickInterval,
		feedback:         cfg.feedback,
		feedbackTimeout:  cfg.feedbackTimeout,
		sink:             cfg.sink,
		stopClock:        make(chan struct{}),
		remainingSeconds: cfg.quiz.DurationMinutes * 60,
		ledger:           make(map[string]string),
		phase:            domain.PhaseInProgress,
		feedbackState:    domain.FeedbackState{Status: domain.FeedbackIdle},
		subscribers:      make(map[chan domain.SessionView]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// start launches the session clock. Each session owns exactly one clock
// goroutine; it exits the moment the session leaves InProgress.
func (s *Session) start() {
	go s.runClock()
}

func (s *Session) runClock() {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !s.tick() {
				return
			}
		case <-s.stopClock:
			return
		}
	}
}

// tick applies one clock second. It reports whether the clock should keep
// running; the false return doubles as the stop signal for runClock so no
// tick can ever be processed after finalization begins.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress {
		return false
	}
	if s.remainingSeconds > 0 {
		s.remainingSeconds--
	}
	if s.remainingSeconds <= 0 {
		s.remainingSeconds = 0
		s.finalizeLocked()
		return false
	}
	s.broadcastLocked()
	return true
}

// SelectAnswer records the participant's choice for a question. The first
// answer is final: repeated calls for the same question are no-ops returning
// the locked option id, so the UI can render the lock without a retry path.
func (s *Session) SelectAnswer(questionID, optionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress {
		return "", domain.ErrSessionFinished
	}
	question := s.findQuestion(questionID)
	if question == nil {
		return "", domain.ErrQuestionNotFound
	}
	if locked, ok := s.ledger[questionID]; ok {
		return locked, nil
	}
	if findOption(*question, optionID) == nil {
		return "", domain.ErrOptionNotFound
	}

	s.ledger[questionID] = optionID
	s.broadcastLocked()
	return optionID, nil
}

// Advance moves to the next question, or finalizes the session when the
// current question is the last one. Advancing past an unanswered question is
// rejected.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress {
		return domain.ErrSessionFinished
	}
	current := s.quiz.Questions[s.index]
	if _, ok := s.ledger[current.ID]; !ok {
		return domain.ErrQuestionUnanswered
	}
	if s.index == len(s.quiz.Questions)-1 {
		s.finalizeLocked()
		return nil
	}
	s.index++
	s.broadcastLocked()
	return nil
}

// finalizeLocked runs the one-time transition from active quiz-taking to
// scored-and-done. The phase check is the mutual exclusion between the
// timeout path and the last-question Advance path: whichever trigger takes
// the lock first wins, the loser sees Finalizing/Finished and backs off.
func (s *Session) finalizeLocked() {
	if s.phase != domain.PhaseInProgress {
		return
	}
	s.phase = domain.PhaseFinalizing
	s.stopOnce.Do(func() { close(s.stopClock) })

	result := Score(s.quiz, s.ledger)
	s.score = &result
	s.phase = domain.PhaseFinished

	if s.feedback != nil {
		s.feedbackState = domain.FeedbackState{Status: domain.FeedbackPending}
		s.feedbackSeq++
		go s.requestFeedback(s.feedbackSeq, result)
	}
	if s.sink != nil {
		go s.persistResult(result.Percentage)
	}
	s.broadcastLocked()
}

// persistResult is fire-and-forget: a failed write is logged and surfaced
// nowhere else, the scored session stays Finished regardless.
func (s *Session) persistResult(percentage int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.sink.SaveResult(ctx, s.participantID, s.quiz.ID, percentage); err != nil {
		log.Printf("save result for participant %s quiz %s failed: %v", s.participantID, s.quiz.ID, err)
	}
}

func (s *Session) requestFeedback(seq uint64, result domain.ScoreResult) {
	correct, incorrect := SplitByCorrectness(result.Details)
	req := FeedbackRequest{
		StudentName:        s.participantName,
		QuizTitle:          s.quiz.Title,
		Percentage:         result.Percentage,
		CorrectQuestions:   correct,
		IncorrectQuestions: incorrect,
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.feedbackTimeout)
	defer cancel()
	text, err := s.feedback.Generate(ctx, req)
	s.applyFeedback(seq, text, err)
}

// applyFeedback delivers the generator outcome. The sequence check makes a
// late result safely ignorable: if the session was detached (or a newer
// request superseded this one) the delivery is dropped on the floor.
func (s *Session) applyFeedback(seq uint64, text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.feedbackSeq || s.feedbackState.Status != domain.FeedbackPending {
		return
	}
	if err != nil {
		log.Printf("feedback generation for session %s failed: %v", s.id, err)
		s.feedbackState = domain.FeedbackState{
			Status: domain.FeedbackFailed,
			Text:   FallbackFeedback,
			Err:    err.Error(),
		}
	} else {
		s.feedbackState = domain.FeedbackState{
			Status: domain.FeedbackSucceeded,
			Text:   text,
		}
	}
	s.broadcastLocked()
}

// stop detaches the session: the clock halts and any in-flight feedback
// delivery becomes stale. The session itself stays inert but readable.
func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.stopClock) })
	s.mu.Lock()
	s.feedbackSeq++
	s.mu.Unlock()
}

// Subscribe returns a channel of session snapshots plus a cancel function.
// The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the oldest pending snapshot so a slow consumer never
			// blocks the state machine.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

// View returns the current observer snapshot.
func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionView {
	view := domain.SessionView{
		SessionID:        s.id,
		QuizID:           s.quiz.ID,
		QuizTitle:        s.quiz.Title,
		QuestionIndex:    s.index,
		QuestionCount:    len(s.quiz.Questions),
		RemainingSeconds: s.remainingSeconds,
		Phase:            s.phase,
	}
	if s.phase == domain.PhaseInProgress && s.index < len(s.quiz.Questions) {
		q := s.quiz.Questions[s.index]
		view.Question = &q
		view.SelectedOptionID = s.ledger[q.ID]
	}
	if s.score != nil {
		sc := *s.score
		view.Score = &sc
	}
	if s.feedbackState.Status != domain.FeedbackIdle {
		fb := s.feedbackState
		view.Feedback = &fb
	}
	return view
}

func (s *Session) findQuestion(questionID string) *domain.Question {
	for i := range s.quiz.Questions {
		if s.quiz.Questions[i].ID == questionID {
			return &s.quiz.Questions[i]
		}
	}
	return nil
}
