// Package dbpool owns the single *sql.DB shared by the mail store and the
// account service: pragma tuning, a SELECT 1 validation when the pool is
// opened, and retry-on-busy. Connections are not re-validated on each
// checkout beyond what database/sql itself does.
package dbpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hopecommon/cs3611-email-sub000/internal/config"
)

const (
	maxRetries      = 5
	baseRetryWait   = 20 * time.Millisecond
	maxRetryWait    = 500 * time.Millisecond
	busyTimeoutMS   = 1000
	sqliteCacheSize = -2000 // negative: KiB of page cache, per SQLite docs
)

// Pool wraps a *sql.DB opened against the configured SQLite database file
// with the pragmas and pool size the store config requires.
type Pool struct {
	db *sql.DB
}

// Open creates the database file's directory-relative connection pool,
// applies the WAL/synchronous/cache/busy_timeout pragmas, and validates the
// first connection with SELECT 1.
func Open(cfg config.StoreConfig) (*Pool, error) {
	dsn := cfg.DatabasePath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=" + fmt.Sprint(busyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	poolSize := cfg.DBPoolSize
	if poolSize <= 0 {
		poolSize = config.DefaultDBPoolSize
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = %d", sqliteCacheSize),
		"PRAGMA temp_store = MEMORY",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("validating connection: %w", err)
	}
	if _, err := db.Exec("SELECT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("validating connection with SELECT 1: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying *sql.DB for callers that need raw access, e.g.
// to build prepared statements once at construction time.
func (p *Pool) DB() *sql.DB { return p.db }

// Close closes the underlying pool.
func (p *Pool) Close() error { return p.db.Close() }

// isBusy reports whether err indicates SQLITE_BUSY / "database is locked",
// matched on message text since mattn/go-sqlite3's typed error requires a
// cgo-enabled build tag we don't want to force on callers of this package.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// Retry runs op, retrying with exponential backoff (capped at maxRetryWait,
// up to maxRetries attempts) whenever op fails with a busy/locked error.
// Any other error, or a busy error that persists past the retry budget, is
// returned to the caller unchanged.
func Retry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = op()
		if lastErr == nil || !isBusy(lastErr) {
			return lastErr
		}
		wait := time.Duration(float64(baseRetryWait) * math.Pow(2, float64(attempt)))
		if wait > maxRetryWait {
			wait = maxRetryWait
		}
		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(wait):
		}
	}
	return lastErr
}
