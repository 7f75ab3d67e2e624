package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultSink upserts final scores into the results table.
type ResultSink struct {
	pool *pgxpool.Pool
}

func NewResultSink(pool *pgxpool.Pool) *ResultSink {
	return &ResultSink{pool: pool}
}

func (s *ResultSink) SaveResult(ctx context.Context, participantID, quizID string, percentage int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO results (participant_id, quiz_id, percentage, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (participant_id, quiz_id)
		DO UPDATE SET percentage = EXCLUDED.percentage, updated_at = now()`,
		participantID, quizID, percentage,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
