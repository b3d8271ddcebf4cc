package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Close()
}

const (
	sqlCreateAttempts = `
        CREATE TABLE IF NOT EXISTS solve_attempts (
            id          UUID PRIMARY KEY,
            run_id      UUID NOT NULL,
            attempt     INTEGER NOT NULL,
            url         TEXT NOT NULL,
            started_at  TIMESTAMPTZ NOT NULL,
            duration_ms BIGINT NOT NULL,
            outcome     TEXT NOT NULL,
            slot_x      INTEGER NOT NULL,
            slot_y      INTEGER NOT NULL,
            piece_x     INTEGER NOT NULL,
            piece_y     INTEGER NOT NULL,
            planned_x   DOUBLE PRECISION NOT NULL,
            final_x     DOUBLE PRECISION NOT NULL,
            final_y     DOUBLE PRECISION NOT NULL,
            diff_count  INTEGER NOT NULL,
            confidence  DOUBLE PRECISION NOT NULL,
            final_state TEXT NOT NULL,
            error       TEXT NOT NULL DEFAULT ''
        );
    `
	sqlInsertAttempt = `
        INSERT INTO solve_attempts (id, run_id, attempt, url, started_at, duration_ms, outcome,
            slot_x, slot_y, piece_x, piece_y, planned_x, final_x, final_y,
            diff_count, confidence, final_state, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
    `
	sqlRecentAttempts = `
        SELECT id, run_id, attempt, url, started_at, duration_ms, outcome,
            slot_x, slot_y, piece_x, piece_y, planned_x, final_x, final_y,
            diff_count, confidence, final_state, error
        FROM solve_attempts
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

// PostgresStore records attempts in the solve_attempts table.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

var _ Recorder = (*PostgresStore)(nil)

// OpenPostgres connects a pool to dsn and returns a ready store.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: postgres pool: %w", err)
	}
	s, err := NewPostgres(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres verifies the connection and creates the table when missing.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, sqlCreateAttempts); err != nil {
		return nil, fmt.Errorf("failed to create solve_attempts table: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("store.postgres"),
	}, nil
}

func (s *PostgresStore) Record(ctx context.Context, rec schemas.AttemptRecord) error {
	tag, err := s.pool.Exec(ctx, sqlInsertAttempt,
		rec.ID, rec.RunID, rec.Attempt, rec.URL,
		rec.StartedAt.UTC(), rec.Duration.Milliseconds(), string(rec.Outcome),
		rec.SlotX, rec.SlotY, rec.PieceX, rec.PieceY,
		rec.PlannedX, rec.FinalX, rec.FinalY,
		rec.DiffCount, rec.Confidence, rec.FinalState, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert attempt %s affected %d rows", rec.ID, tag.RowsAffected())
	}
	s.log.Debug("Recorded attempt", zap.String("id", rec.ID), zap.String("outcome", string(rec.Outcome)))
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]schemas.AttemptRecord, error) {
	rows, err := s.pool.Query(ctx, sqlRecentAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []schemas.AttemptRecord
	for rows.Next() {
		var rec schemas.AttemptRecord
		var durationMs int64
		var outcome string
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Attempt, &rec.URL, &rec.StartedAt, &durationMs, &outcome,
			&rec.SlotX, &rec.SlotY, &rec.PieceX, &rec.PieceY,
			&rec.PlannedX, &rec.FinalX, &rec.FinalY,
			&rec.DiffCount, &rec.Confidence, &rec.FinalState, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Outcome = schemas.AttemptOutcome(outcome)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
