package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// postgresWriter implements Writer using PostgreSQL.
type postgresWriter struct {
	pool *pgxpool.Pool
	cfg  Config
}

func newPostgresWriter(cfg Config) (*postgresWriter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &postgresWriter{pool: pool, cfg: cfg}, nil
}

func (w *postgresWriter) RecordOutcome(ctx context.Context, rec OutcomeRecord) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := w.pool.Exec(ctx, `
		INSERT INTO bar_outcomes
			(namespace, symbol, trading_date, status, expected_bars,
			 actual_bars, retry_count, error_message, run_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.cfg.Namespace, rec.Symbol, rec.Date, rec.Status, rec.ExpectedBars,
		rec.ActualBars, rec.RetryCount, rec.ErrorMessage, rec.RunID, recordedAt)
	if err != nil {
		return fmt.Errorf("insert outcome for %s %s: %w", rec.Symbol, rec.Date, err)
	}
	return nil
}

func (w *postgresWriter) RecordDayFile(ctx context.Context, rec DayFileRecord) error {
	_, err := w.pool.Exec(ctx, `
		INSERT INTO bar_day_files
			(namespace, symbol, trading_date, uri, checksum,
			 bar_count, byte_size, schema_version, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (namespace, symbol, trading_date, run_id) DO UPDATE
			SET uri = EXCLUDED.uri,
			    checksum = EXCLUDED.checksum,
			    bar_count = EXCLUDED.bar_count,
			    byte_size = EXCLUDED.byte_size`,
		w.cfg.Namespace, rec.Symbol, rec.Date, rec.URI, rec.Checksum,
		rec.BarCount, rec.ByteSize, rec.SchemaVersion, rec.RunID)
	if err != nil {
		return fmt.Errorf("insert day file for %s %s: %w", rec.Symbol, rec.Date, err)
	}
	return nil
}

func (w *postgresWriter) Close() {
	w.pool.Close()
}
