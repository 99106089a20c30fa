package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metno-forecast/norwegianweather/internal/weather"
)

const createBlobTable = `
	CREATE TABLE IF NOT EXISTS forecast_blobs (
		key        TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresBlobStore stores blobs in the forecast_blobs table.
type PostgresBlobStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBlobStore creates the blob table if needed.
func NewPostgresBlobStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresBlobStore, error) {
	if _, err := pool.Exec(ctx, createBlobTable); err != nil {
		return nil, fmt.Errorf("postgres: failed to create blob table: %w", err)
	}
	return &PostgresBlobStore{pool: pool}, nil
}

func (s *PostgresBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM forecast_blobs WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, weather.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load blob %s: %w", key, err)
	}
	return data, nil
}

func (s *PostgresBlobStore) Save(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO forecast_blobs (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query, key, data); err != nil {
		return fmt.Errorf("postgres: failed to save blob %s: %w", key, err)
	}
	return nil
}

var _ weather.BlobStore = (*PostgresBlobStore)(nil)
