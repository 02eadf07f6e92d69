// Package postgres persists batches, inventory logs and shipments in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the relational system of record.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool against databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("connected to postgres")
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("postgres connection pool closed")
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id                      BIGSERIAL PRIMARY KEY,
	variety                 TEXT NOT NULL,
	quantity_kg             DOUBLE PRECISION NOT NULL CHECK (quantity_kg >= 0),
	harvest_date            DATE NOT NULL,
	source_farm             TEXT NOT NULL,
	storage_location        TEXT NOT NULL,
	estimated_shelf_life    INTEGER NOT NULL DEFAULT 14,
	quality_grade           TEXT NOT NULL DEFAULT 'A',
	temperature_requirement TEXT NOT NULL DEFAULT '13-15',
	humidity_requirement    TEXT NOT NULL DEFAULT '90-95',
	temperature_actual      DOUBLE PRECISION,
	humidity_actual         DOUBLE PRECISION,
	status                  TEXT NOT NULL DEFAULT 'in_storage',
	spoilage_risk           TEXT NOT NULL DEFAULT 'low',
	destination             TEXT,
	transportation_type     TEXT,
	expected_delivery_date  DATE,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS inventory_logs (
	id           BIGSERIAL PRIMARY KEY,
	batch_id     BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	action       TEXT NOT NULL,
	quantity_kg  DOUBLE PRECISION NOT NULL,
	reason       TEXT NOT NULL,
	performed_by TEXT NOT NULL DEFAULT 'system',
	notes        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS shipments (
	id                     BIGSERIAL PRIMARY KEY,
	batch_id               BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	destination            TEXT NOT NULL,
	transportation_type    TEXT NOT NULL,
	expected_delivery_date DATE,
	actual_delivery_date   DATE,
	status                 TEXT NOT NULL DEFAULT 'scheduled',
	notes                  TEXT,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches (status);
CREATE INDEX IF NOT EXISTS idx_inventory_logs_batch ON inventory_logs (batch_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_shipments_batch ON shipments (batch_id);
`

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
