package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/SmartNewbieProject/sometimes-work-helper/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_messages (
    fingerprint  TEXT PRIMARY KEY,
    processed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    message_data JSONB,
    expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processed_messages_expires_at
    ON processed_messages (expires_at);`

// PostgresStore persists fingerprint records in a single table. Expiry is
// enforced at query time; expired rows are simply invisible to Exists.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM processed_messages
			WHERE fingerprint = $1 AND expires_at > now()
		)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, fingerprint).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking fingerprint: %v", err)
	}
	return exists, nil
}

func (s *PostgresStore) Record(ctx context.Context, fingerprint string, payload []byte) error {
	query := `
		INSERT INTO processed_messages (fingerprint, processed_at, message_data, expires_at)
		VALUES ($1, now(), $2, $3)
		ON CONFLICT (fingerprint) DO UPDATE
		SET processed_at = now(),
		    message_data = EXCLUDED.message_data,
		    expires_at   = EXCLUDED.expires_at`

	expiresAt := time.Now().Add(RetentionWindow)
	if _, err := s.db.ExecContext(ctx, query, fingerprint, payload, expiresAt); err != nil {
		return fmt.Errorf("error recording fingerprint: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
