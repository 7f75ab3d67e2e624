package memory

import (
	"context"
	"sync"
)

// ResultSink keeps scores in memory (useful for tests/demos).
type ResultSink struct {
	mu     sync.RWMutex
	scores map[string]map[string]int // participantID -> quizID -> percentage
}

func NewResultSink() *ResultSink {
	return &ResultSink{scores: make(map[string]map[string]int)}
}

func (s *ResultSink) SaveResult(_ context.Context, participantID, quizID string, percentage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scores[participantID]; !ok {
		s.scores[participantID] = make(map[string]int)
	}
	s.scores[participantID][quizID] = percentage
	return nil
}

// Result returns the stored percentage for a participant/quiz pair.
func (s *ResultSink) Result(participantID, quizID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marks, ok := s.scores[participantID]
	if !ok {
		return 0, false
	}
	pct, ok := marks[quizID]
	return pct, ok
}
