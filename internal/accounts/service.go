package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/dbpool"
)

// ErrNotFound is returned when a lookup finds no matching user.
var ErrNotFound = errors.New("accounts: user not found")

// ErrInvalidCredentials is returned by Authenticate on a bad username or
// password. The two cases are indistinguishable to the caller by design.
var ErrInvalidCredentials = errors.New("accounts: invalid credentials")

// Service is the user account repository and authenticator, backed by the
// shared SQLite pool. All operations go through dbpool.Retry so a
// concurrent writer momentarily holding the database lock doesn't surface
// as a hard failure.
type Service struct {
	pool *dbpool.Pool
}

// New wraps pool in a Service and ensures the users table exists.
func New(pool *dbpool.Pool) (*Service, error) {
	s := &Service{pool: pool}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		username        TEXT PRIMARY KEY,
		email           TEXT NOT NULL,
		password_hash   BLOB NOT NULL,
		salt            BLOB NOT NULL,
		display_name    TEXT NOT NULL DEFAULT '',
		active          INTEGER NOT NULL DEFAULT 1,
		created_at      TEXT NOT NULL,
		last_login_at   TEXT,
		relay_json      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`
	return dbpool.Retry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx, schema)
		return err
	})
}

func marshalRelay(r *RelayCredentials) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding relay credentials: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalRelay(ns sql.NullString) (*RelayCredentials, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var r RelayCredentials
	if err := json.Unmarshal([]byte(ns.String), &r); err != nil {
		return nil, fmt.Errorf("decoding relay credentials: %w", err)
	}
	return &r, nil
}

// CreateUser inserts a new account with a freshly derived password hash.
// It fails if username already exists.
func (s *Service) CreateUser(ctx context.Context, username, email, password, displayName string) (*User, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	hash := derivePasswordHash(password, salt)
	now := time.Now().UTC()

	err = dbpool.Retry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, salt, display_name, active, created_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?)`,
			username, email, hash, salt, displayName, now.Format(time.RFC3339))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}

	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		DisplayName:  displayName,
		Active:       true,
		CreatedAt:    now,
	}, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var active int
	var createdAt string
	var lastLogin sql.NullString
	var relay sql.NullString

	err := row.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.DisplayName,
		&active, &createdAt, &lastLogin, &relay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Active = active != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		u.CreatedAt = t
	}
	if lastLogin.Valid {
		if t, err := time.Parse(time.RFC3339, lastLogin.String); err == nil {
			u.LastLoginAt = t
		}
	}
	relayCreds, err := unmarshalRelay(relay)
	if err != nil {
		return nil, err
	}
	u.Relay = relayCreds
	return &u, nil
}

const userColumns = `username, email, password_hash, salt, display_name, active, created_at, last_login_at, relay_json`

// GetUserByUsername fetches a user by its primary key.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u *User
	err := dbpool.Retry(ctx, func() error {
		row := s.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
		var innerErr error
		u, innerErr = scanUser(row)
		return innerErr
	})
	return u, err
}

// GetUserByEmail fetches a user by its (non-unique) email address,
// returning the first match; email is searchable but not a primary key.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u *User
	err := dbpool.Retry(ctx, func() error {
		row := s.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
		var innerErr error
		u, innerErr = scanUser(row)
		return innerErr
	})
	return u, err
}

// Authenticate verifies username/password, records last_login_at on
// success, and returns the user. Both "no such user" and "wrong password"
// map to ErrInvalidCredentials so a caller can never distinguish them.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		// Still derive a hash against a throwaway salt so the failure path
		// costs roughly the same time as a real mismatch.
		_ = derivePasswordHash(password, make([]byte, saltBytes))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if !verifyPassword(password, u.PasswordHash, u.Salt) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	_ = dbpool.Retry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE username = ?`,
			now.Format(time.RFC3339), username)
		return err
	})
	u.LastLoginAt = now
	return u, nil
}

// ChangePassword overwrites hash and salt atomically in a single row
// update.
func (s *Service) ChangePassword(ctx context.Context, username, newPassword string) error {
	salt, err := newSalt()
	if err != nil {
		return err
	}
	hash := derivePasswordHash(newPassword, salt)
	return dbpool.Retry(ctx, func() error {
		res, err := s.pool.DB().ExecContext(ctx,
			`UPDATE users SET password_hash = ?, salt = ? WHERE username = ?`, hash, salt, username)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) setActive(ctx context.Context, username string, active bool) error {
	var flag int
	if active {
		flag = 1
	}
	return dbpool.Retry(ctx, func() error {
		res, err := s.pool.DB().ExecContext(ctx, `UPDATE users SET active = ? WHERE username = ?`, flag, username)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Deactivate flips the active flag off without deleting the row; accounts
// are never deleted in normal operation.
func (s *Service) Deactivate(ctx context.Context, username string) error {
	return s.setActive(ctx, username, false)
}

// ActivateUser flips the active flag back on.
func (s *Service) ActivateUser(ctx context.Context, username string) error {
	return s.setActive(ctx, username, true)
}

// ListUsers returns every account ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := dbpool.Retry(ctx, func() error {
		rows, err := s.pool.DB().QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
		if err != nil {
			return err
		}
		defer rows.Close()

		users = nil
		for rows.Next() {
			var u User
			var active int
			var createdAt string
			var lastLogin sql.NullString
			var relay sql.NullString
			if err := rows.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.DisplayName,
				&active, &createdAt, &lastLogin, &relay); err != nil {
				return err
			}
			u.Active = active != 0
			if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
				u.CreatedAt = t
			}
			if lastLogin.Valid {
				if t, err := time.Parse(time.RFC3339, lastLogin.String); err == nil {
					u.LastLoginAt = t
				}
			}
			relayCreds, err := unmarshalRelay(relay)
			if err != nil {
				return err
			}
			u.Relay = relayCreds
			users = append(users, &u)
		}
		return rows.Err()
	})
	return users, err
}

// SetRelayCredentials stores (or clears, with nil) the optional relay
// settings used only by the web collaborator.
func (s *Service) SetRelayCredentials(ctx context.Context, username string, relay *RelayCredentials) error {
	ns, err := marshalRelay(relay)
	if err != nil {
		return err
	}
	return dbpool.Retry(ctx, func() error {
		res, err := s.pool.DB().ExecContext(ctx, `UPDATE users SET relay_json = ? WHERE username = ?`, ns, username)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
