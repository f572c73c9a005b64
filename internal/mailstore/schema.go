package mailstore

import (
	"context"

	"github.com/hopecommon/cs3611-email-sub000/internal/dbpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS emails (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id    TEXT NOT NULL UNIQUE,
	from_addr     TEXT NOT NULL,
	to_addrs      TEXT NOT NULL,
	subject       TEXT NOT NULL,
	date          TEXT NOT NULL,
	size          INTEGER NOT NULL DEFAULT 0,
	is_read       INTEGER NOT NULL DEFAULT 0,
	is_deleted    INTEGER NOT NULL DEFAULT 0,
	is_spam       INTEGER NOT NULL DEFAULT 0,
	spam_score    REAL NOT NULL DEFAULT 0,
	content_path  TEXT NOT NULL DEFAULT '',
	is_recalled   INTEGER NOT NULL DEFAULT 0,
	recalled_at   TEXT NOT NULL DEFAULT '',
	recalled_by   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date DESC);
CREATE INDEX IF NOT EXISTS idx_emails_from ON emails(from_addr);

CREATE TABLE IF NOT EXISTS sent_emails (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id      TEXT NOT NULL UNIQUE,
	from_addr       TEXT NOT NULL,
	to_addrs        TEXT NOT NULL,
	cc_addrs        TEXT NOT NULL DEFAULT '[]',
	bcc_addrs       TEXT NOT NULL DEFAULT '[]',
	subject         TEXT NOT NULL,
	date            TEXT NOT NULL,
	size            INTEGER NOT NULL DEFAULT 0,
	is_read         INTEGER NOT NULL DEFAULT 0,
	is_deleted      INTEGER NOT NULL DEFAULT 0,
	is_spam         INTEGER NOT NULL DEFAULT 0,
	spam_score      REAL NOT NULL DEFAULT 0,
	content_path    TEXT NOT NULL DEFAULT '',
	has_attachments INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'sent',
	is_recalled     INTEGER NOT NULL DEFAULT 0,
	recalled_at     TEXT NOT NULL DEFAULT '',
	recalled_by     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sent_emails_date ON sent_emails(date DESC);
CREATE INDEX IF NOT EXISTS idx_sent_emails_from ON sent_emails(from_addr);
`

// Repository is the SQL-backed metadata store for received and sent email
// rows, shared over the dbpool connection pool.
type Repository struct {
	pool *dbpool.Pool
}

// NewRepository migrates the emails/sent_emails tables and returns a
// Repository bound to pool.
func NewRepository(pool *dbpool.Pool) (*Repository, error) {
	r := &Repository{pool: pool}
	if err := dbpool.Retry(context.Background(), func() error {
		_, err := pool.DB().Exec(schemaSQL)
		return err
	}); err != nil {
		return nil, err
	}
	return r, nil
}
