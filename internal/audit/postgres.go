package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/config"
)

const captureEventsSchema = `
CREATE TABLE IF NOT EXISTS capture_events (
    id          UUID PRIMARY KEY,
    checkpoint  TEXT NOT NULL,
    op          TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    payload     TEXT,
    slot        SMALLINT,
    confidence  INTEGER,
    reason      TEXT,
    elapsed_ms  BIGINT NOT NULL,
    at          TIMESTAMPTZ NOT NULL
)`

// PostgresSink persists capture events through a pgx pool.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects and ensures the events table exists.
func NewPostgresSink(ctx context.Context, cfg config.AuditConfig, logger *zap.Logger) (*PostgresSink, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, captureEventsSchema); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("audit: connected to postgres")
	return &PostgresSink{pool: pool}, nil
}

// Record implements Sink.
func (s *PostgresSink) Record(ctx context.Context, event CaptureEvent) error {
	const query = `
        INSERT INTO capture_events (id, checkpoint, op, outcome, payload, slot, confidence, reason, elapsed_ms, at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.pool.Exec(ctx, query,
		event.ID,
		event.Checkpoint,
		event.Op,
		string(event.Outcome),
		event.Payload,
		int16(event.Slot),
		int32(event.Confidence),
		event.Reason,
		event.ElapsedMS,
		event.At,
	)
	return err
}

// Close implements Sink.
func (s *PostgresSink) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
