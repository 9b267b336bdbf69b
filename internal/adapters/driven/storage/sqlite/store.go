package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.StateStore = (*Store)(nil)

// Store is the SQLite-backed state store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.driveroute/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".driveroute", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ==================== Channel Store ====================

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
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			channel_id = excluded.channel_id,
			resource_id = excluded.resource_id,
			address = excluded.address,
			expiration = excluded.expiration,
			created_at = excluded.created_at
	`, ch.ID, ch.ResourceID, ch.Address, expiration, createdAt.UTC())

	if err != nil {
		return fmt.Errorf("saving watch channel: %w", err)
	}
	return nil
}

// ClearChannel removes the active channel.
func (s *Store) ClearChannel(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM watch_channel WHERE slot = 1")
	if err != nil {
		return fmt.Errorf("clearing watch channel: %w", err)
	}
	return nil
}

// ==================== Cursor Store ====================

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
		VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			page_token = excluded.page_token,
			updated_at = excluded.updated_at
	`, token, s.now().UTC())

	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}
