package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultSink persists final scores in Redis, one hash per participant:
// HSET user:{participantID}:marks {quizID} {percentage}
type ResultSink struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultSink(client *redis.Client, ttl time.Duration) *ResultSink {
	return &ResultSink{client: client, ttl: ttl}
}

func (s *ResultSink) SaveResult(ctx context.Context, participantID, quizID string, percentage int) error {
	key := s.marksKey(participantID)
	if err := s.client.HSet(ctx, key, quizID, percentage).Err(); err != nil {
		return err
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, key, s.ttl).Err()
	}
	return nil
}

func (s *ResultSink) marksKey(participantID string) string {
	return "user:" + participantID + ":marks"
}
