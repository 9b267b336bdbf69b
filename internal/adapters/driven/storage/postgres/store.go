// Package postgres provides a PostgreSQL-backed driven.StateStore for
// deployments where several hosts share one state database.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

//go:embed schema.sql
var schema string

// Ensure Store implements the interface.
var _ driven.StateStore = (*Store)(nil)

// Store is the PostgreSQL state store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore connects to dsn and creates the schema if needed.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrConfig)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetChannel returns the active channel.
func (s *Store) GetChannel(ctx context.Context) (*domain.WatchChannel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, resource_id, address, expiration, created_at
		FROM watch_channel WHERE slot = 1
	`)

	var ch domain.WatchChannel
	var expiration sql.NullTime
	if err := row.Scan(&ch.ID, &ch.ResourceID, &ch.Address, &expiration, &ch.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning watch channel: %w", err)
	}

	if expiration.Valid {
		exp := expiration.Time.UTC()
		ch.Expiration = &exp
	}
	ch.CreatedAt = ch.CreatedAt.UTC()
	return &ch, nil
}

// SaveChannel replaces the active channel.
func (s *Store) SaveChannel(ctx context.Context, ch domain.WatchChannel) error {
	var expiration sql.NullTime
	if ch.Expiration != nil {
		expiration = sql.NullTime{Time: ch.Expiration.UTC(), Valid: true}
	}
	createdAt := ch.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_channel (slot, channel_id, resource_id, address, expiration, created_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (slot) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			resource_id = EXCLUDED.resource_id,
			address = EXCLUDED.address,
			expiration = EXCLUDED.expiration,
			created_at = EXCLUDED.created_at
	`, ch.ID, ch.ResourceID, ch.Address, expiration, createdAt.UTC())

	if err != nil {
		return fmt.Errorf("saving watch channel: %w", err)
	}
	return nil
}

// ClearChannel removes the active channel.
func (s *Store) ClearChannel(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM watch_channel WHERE slot = 1"); err != nil {
		return fmt.Errorf("clearing watch channel: %w", err)
	}
	return nil
}

// GetCursor returns the persisted cursor token.
func (s *Store) GetCursor(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, "SELECT page_token FROM change_cursor WHERE slot = 1").Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("scanning cursor: %w", err)
	}
	return token, nil
}

// SaveCursor replaces the cursor token.
func (s *Store) SaveCursor(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_cursor (slot, page_token, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (slot) DO UPDATE SET
			page_token = EXCLUDED.page_token,
			updated_at = EXCLUDED.updated_at
	`, token, s.now().UTC())

	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}
