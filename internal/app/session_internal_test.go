package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func testQuiz(questions ...domain.Question) domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Sample",
		DurationMinutes: 1,
		Questions:       questions,
	}
}

func simpleQuestion(id string) domain.Question {
	return domain.Question{
		ID:   id,
		Text: "Question " + id,
		Options: []domain.Option{
			{ID: "o1", Text: "Right"},
			{ID: "o2", Text: "Wrong"},
		},
		CorrectOptionID: "o1",
	}
}

type countingSink struct {
	mu    sync.Mutex
	calls int
	last  int
}

func (s *countingSink) SaveResult(_ context.Context, _, _ string, percentage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = percentage
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type countingGenerator struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (g *countingGenerator) Generate(_ context.Context, _ FeedbackRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.text, g.err
}

func (g *countingGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestTickCountsDownAndClampsAtZero(t *testing.T) {
	s := newSession(sessionConfig{
		id:   "s1",
		quiz: testQuiz(simpleQuestion("q1")),
	})

	for i := 0; i < 59; i++ {
		if !s.tick() {
			t.Fatalf("clock stopped early at tick %d", i)
		}
	}
	view := s.View()
	if view.RemainingSeconds != 1 || view.Phase != domain.PhaseInProgress {
		t.Fatalf("expected 1s left in progress, got %ds phase %s", view.RemainingSeconds, view.Phase)
	}

	// The final tick reaches zero and finalizes.
	if s.tick() {
		t.Fatalf("expected clock stop on final tick")
	}
	view = s.View()
	if view.RemainingSeconds != 0 {
		t.Fatalf("remaining time went negative or stayed: %d", view.RemainingSeconds)
	}
	if view.Phase != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", view.Phase)
	}

	// Ticks after finalization are no-ops.
	if s.tick() {
		t.Fatalf("tick accepted after finish")
	}
	if got := s.View().RemainingSeconds; got != 0 {
		t.Fatalf("post-finish tick changed time to %d", got)
	}
}

func TestTimeoutScoresEmptyLedger(t *testing.T) {
	sink := &countingSink{}
	s := newSession(sessionConfig{
		id:            "s1",
		participantID: "u1",
		quiz:          testQuiz(simpleQuestion("q1")),
		sink:          sink,
	})
	s.mu.Lock()
	s.remainingSeconds = 1
	s.mu.Unlock()

	s.tick()

	view := s.View()
	if view.Phase != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", view.Phase)
	}
	if view.Score == nil || view.Score.Percentage != 0 {
		t.Fatalf("expected 0%% score, got %+v", view.Score)
	}
	if view.Score.Details[0].SelectedAnswer != "Not Answered" {
		t.Fatalf("expected Not Answered detail, got %q", view.Score.Details[0].SelectedAnswer)
	}
	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestSelectAnswerLocksFirstChoice(t *testing.T) {
	s := newSession(sessionConfig{id: "s1", quiz: testQuiz(simpleQuestion("q1"))})

	locked, err := s.SelectAnswer("q1", "o2")
	if err != nil || locked != "o2" {
		t.Fatalf("first answer: locked=%q err=%v", locked, err)
	}

	// Second call with a different option is a no-op returning the lock.
	locked, err = s.SelectAnswer("q1", "o1")
	if err != nil {
		t.Fatalf("re-answer returned error: %v", err)
	}
	if locked != "o2" {
		t.Fatalf("ledger changed after lock: %q", locked)
	}
	if got := s.View().SelectedOptionID; got != "o2" {
		t.Fatalf("view shows %q, want o2", got)
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	s := newSession(sessionConfig{id: "s1", quiz: testQuiz(simpleQuestion("q1"))})

	if _, err := s.SelectAnswer("missing", "o1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question error, got %v", err)
	}
	if _, err := s.SelectAnswer("q1", "missing"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option error, got %v", err)
	}

	s.mu.Lock()
	s.finalizeLocked()
	s.mu.Unlock()

	if _, err := s.SelectAnswer("q1", "o1"); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected finished error, got %v", err)
	}
	if err := s.Advance(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected finished error, got %v", err)
	}
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	s := newSession(sessionConfig{id: "s1", quiz: testQuiz(simpleQuestion("q1"), simpleQuestion("q2"))})

	if err := s.Advance(); !errors.Is(err, domain.ErrQuestionUnanswered) {
		t.Fatalf("expected unanswered error, got %v", err)
	}
	if got := s.View().QuestionIndex; got != 0 {
		t.Fatalf("rejected advance moved index to %d", got)
	}

	if _, err := s.SelectAnswer("q1", "o1"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := s.View().QuestionIndex; got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
}

func TestAdvanceOnLastQuestionFinalizes(t *testing.T) {
	sink := &countingSink{}
	s := newSession(sessionConfig{
		id:            "s1",
		participantID: "u1",
		quiz:          testQuiz(simpleQuestion("q1")),
		sink:          sink,
	})

	if _, err := s.SelectAnswer("q1", "o1"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	view := s.View()
	if view.Phase != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", view.Phase)
	}
	if view.Score.Percentage != 100 {
		t.Fatalf("expected 100%%, got %d", view.Score.Percentage)
	}
	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestFinalizeExactlyOnceUnderRace(t *testing.T) {
	sink := &countingSink{}
	gen := &countingGenerator{text: "well done"}
	s := newSession(sessionConfig{
		id:            "s1",
		participantID: "u1",
		quiz:          testQuiz(simpleQuestion("q1")),
		sink:          sink,
		feedback:      gen,
	})
	if _, err := s.SelectAnswer("q1", "o1"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	s.mu.Lock()
	s.remainingSeconds = 1
	s.mu.Unlock()

	// Timeout tick and last-question advance race to finalize.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.tick()
	}()
	go func() {
		defer wg.Done()
		_ = s.Advance()
	}()
	wg.Wait()

	if got := s.View().Phase; got != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", got)
	}

	waitFor(t, func() bool {
		return s.View().Feedback != nil && s.View().Feedback.Status == domain.FeedbackSucceeded
	})
	if sink.count() != 1 {
		t.Fatalf("expected exactly one result write, got %d", sink.count())
	}
	if gen.count() != 1 {
		t.Fatalf("expected exactly one feedback request, got %d", gen.count())
	}
}

func TestFeedbackFailureFallsBack(t *testing.T) {
	gen := &countingGenerator{err: errors.New("generator down")}
	s := newSession(sessionConfig{
		id:       "s1",
		quiz:     testQuiz(simpleQuestion("q1")),
		feedback: gen,
	})
	if _, err := s.SelectAnswer("q1", "o1"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	waitFor(t, func() bool {
		fb := s.View().Feedback
		return fb != nil && fb.Status == domain.FeedbackFailed
	})

	view := s.View()
	if view.Phase != domain.PhaseFinished || view.Score == nil {
		t.Fatalf("feedback failure corrupted session: phase=%s score=%v", view.Phase, view.Score)
	}
	if view.Feedback.Text != FallbackFeedback {
		t.Fatalf("expected fallback text, got %q", view.Feedback.Text)
	}
}

func TestStaleFeedbackDeliveryIgnored(t *testing.T) {
	s := newSession(sessionConfig{id: "s1", quiz: testQuiz(simpleQuestion("q1"))})
	s.mu.Lock()
	s.feedbackState = domain.FeedbackState{Status: domain.FeedbackPending}
	s.feedbackSeq = 2
	s.mu.Unlock()

	// Delivery carrying an old sequence must be dropped.
	s.applyFeedback(1, "late text", nil)
	if fb := s.View().Feedback; fb.Status != domain.FeedbackPending || fb.Text != "" {
		t.Fatalf("stale delivery applied: %+v", fb)
	}

	s.applyFeedback(2, "current text", nil)
	if fb := s.View().Feedback; fb.Status != domain.FeedbackSucceeded || fb.Text != "current text" {
		t.Fatalf("current delivery not applied: %+v", fb)
	}
}

func TestStopMakesFeedbackStale(t *testing.T) {
	s := newSession(sessionConfig{id: "s1", quiz: testQuiz(simpleQuestion("q1"))})
	s.mu.Lock()
	s.feedbackState = domain.FeedbackState{Status: domain.FeedbackPending}
	s.feedbackSeq = 1
	s.mu.Unlock()

	s.stop()

	s.applyFeedback(1, "after teardown", nil)
	if fb := s.View().Feedback; fb.Status != domain.FeedbackPending {
		t.Fatalf("delivery after stop applied: %+v", fb)
	}
}
