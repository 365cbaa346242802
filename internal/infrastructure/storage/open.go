package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL backend behind a repository.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDSN picks the driver from the DSN prefix and returns the driver-native DSN.
// postgres:// and postgresql:// go to lib/pq; sqlite://path, file: and bare paths to sqlite.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("database dsn is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	default:
		return DialectSQLite, dsn, nil
	}
}

// Open connects, migrates and returns a repository for the DSN.
func Open(ctx context.Context, dsn string) (*SQLRepository, error) {
	dialect, native, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), native)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	switch dialect {
	case DialectPostgres:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	case DialectSQLite:
		// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	repo := NewSQLRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS newsletter_subscriptions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	api_query TEXT NOT NULL,
	cron_schedule TEXT NOT NULL,
	summarization_prompt TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_newsletter_subscriptions_user ON newsletter_subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_newsletter_subscriptions_active ON newsletter_subscriptions(is_active);

CREATE TABLE IF NOT EXISTS generated_newsletters (
	id TEXT PRIMARY KEY,
	subscription_id TEXT NOT NULL REFERENCES newsletter_subscriptions(id),
	content TEXT NOT NULL,
	sources JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_generated_newsletters_subscription ON generated_newsletters(subscription_id, created_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS newsletter_subscriptions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	api_query TEXT NOT NULL,
	cron_schedule TEXT NOT NULL,
	summarization_prompt TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_newsletter_subscriptions_user ON newsletter_subscriptions(user_id);
CREATE INDEX IF NOT EXISTS idx_newsletter_subscriptions_active ON newsletter_subscriptions(is_active);

CREATE TABLE IF NOT EXISTS generated_newsletters (
	id TEXT PRIMARY KEY,
	subscription_id TEXT NOT NULL REFERENCES newsletter_subscriptions(id),
	content TEXT NOT NULL,
	sources TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generated_newsletters_subscription ON generated_newsletters(subscription_id, created_at DESC);
`
