package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSessionRepository implements the session repository interface on a SQLite key/value table
type SQLiteSessionRepository struct {
	db  *sql.DB
	key string
}

// OpenSQLite opens (and creates) the SQLite database at path
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY on concurrent saves
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteSessionRepository creates the schema if needed and returns a repository for the named slot
func NewSQLiteSessionRepository(ctx context.Context, db *sql.DB, slot string) (*SQLiteSessionRepository, error) {
	if slot == "" {
		slot = DefaultSessionKey
	}

	repo := &SQLiteSessionRepository{db: db, key: slot}
	if err := repo.initSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteSessionRepository) initSchema(ctx context.Context) error {
	const q = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Save overwrites the session slot
func (r *SQLiteSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key, data)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load retrieves the session from the slot
func (r *SQLiteSessionRepository) Load(ctx context.Context) (*entity.Session, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, r.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	return entity.DecodeSession(data)
}
