package mailstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/dbpool"
)

const receivedColumns = `id, message_id, from_addr, to_addrs, subject, date, size, is_read, is_deleted,
	is_spam, spam_score, content_path, is_recalled, recalled_at, recalled_by`

func encodeAddrs(addrs []string) (string, error) {
	if addrs == nil {
		addrs = []string{}
	}
	b, err := json.Marshal(addrs)
	if err != nil {
		return "", fmt.Errorf("encoding address list: %w", err)
	}
	return string(b), nil
}

func decodeAddrs(raw string) []string {
	if raw == "" {
		return nil
	}
	var addrs []string
	if err := json.Unmarshal([]byte(raw), &addrs); err != nil {
		return nil
	}
	return addrs
}

func scanReceivedRow(scan func(dest ...any) error) (*ReceivedRow, error) {
	var row ReceivedRow
	var toAddrs, dateStr, recalledAtStr string
	var isRead, isDeleted, isSpam, isRecalled int

	err := scan(&row.ID, &row.MessageID, &row.FromAddr, &toAddrs, &row.Subject, &dateStr,
		&row.Size, &isRead, &isDeleted, &isSpam, &row.SpamScore, &row.ContentPath,
		&isRecalled, &recalledAtStr, &row.RecalledBy)
	if err != nil {
		return nil, err
	}

	row.ToAddrs = decodeAddrs(toAddrs)
	row.IsRead = isRead != 0
	row.IsDeleted = isDeleted != 0
	row.IsSpam = isSpam != 0
	row.IsRecalled = isRecalled != 0
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		row.Date = t
	}
	if t, err := time.Parse(time.RFC3339, recalledAtStr); err == nil {
		row.RecalledAt = t
	}
	return &row, nil
}

// InsertReceived inserts row, ignoring the insert if message_id already
// exists. It reports whether this call's insert actually won the race, per
// the "exactly one insert succeeds" invariant on concurrent save_email
// calls with identical Message-IDs.
func (r *Repository) InsertReceived(ctx context.Context, row *ReceivedRow) (inserted bool, err error) {
	toAddrs, err := encodeAddrs(row.ToAddrs)
	if err != nil {
		return false, err
	}

	err = dbpool.Retry(ctx, func() error {
		res, execErr := r.pool.DB().ExecContext(ctx, `
			INSERT OR IGNORE INTO emails
				(message_id, from_addr, to_addrs, subject, date, size, is_read, is_deleted,
				 is_spam, spam_score, content_path, is_recalled, recalled_at, recalled_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.MessageID, row.FromAddr, toAddrs, row.Subject, row.Date.UTC().Format(time.RFC3339),
			row.Size, boolToInt(row.IsRead), boolToInt(row.IsDeleted),
			boolToInt(row.IsSpam), row.SpamScore, row.ContentPath,
			boolToInt(row.IsRecalled), "", "")
		if execErr != nil {
			return execErr
		}
		n, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetReceived fetches a row by message_id.
func (r *Repository) GetReceived(ctx context.Context, messageID string) (*ReceivedRow, error) {
	var row *ReceivedRow
	err := dbpool.Retry(ctx, func() error {
		rs := r.pool.DB().QueryRowContext(ctx, `SELECT `+receivedColumns+` FROM emails WHERE message_id = ?`, messageID)
		var innerErr error
		row, innerErr = scanReceivedRow(rs.Scan)
		return innerErr
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return row, err
}

// ListReceived returns rows matching filter, ordered by date DESC.
// UserEmail matches ToAddrs containment (element-equality, decoded in Go)
// OR FromAddr equality, per the to_addrs-containment open-question
// resolution.
func (r *Repository) ListReceived(ctx context.Context, filter ListFilter) ([]*ReceivedRow, error) {
	var clauses []string
	var args []any

	if !filter.IncludeDeleted {
		clauses = append(clauses, "is_deleted = 0")
	}
	if !filter.IncludeSpam {
		clauses = append(clauses, "is_spam = 0")
	}
	if !filter.IncludeRecalled {
		clauses = append(clauses, "is_recalled = 0")
	}
	if filter.IsSpam != nil {
		clauses = append(clauses, "is_spam = ?")
		args = append(args, boolToInt(*filter.IsSpam))
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM emails %s ORDER BY date DESC`, receivedColumns, where)

	var rows []*ReceivedRow
	err := dbpool.Retry(ctx, func() error {
		rs, execErr := r.pool.DB().QueryContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		defer rs.Close()

		rows = nil
		for rs.Next() {
			row, scanErr := scanReceivedRow(rs.Scan)
			if scanErr != nil {
				return scanErr
			}
			// UserEmail matches from_addr equality OR to_addrs containment;
			// both halves of the OR are evaluated here in Go, the way
			// matchesQuery does for search, since to_addrs is a JSON-encoded
			// column SQL can't test containment against directly.
			if filter.UserEmail != "" &&
				!strings.EqualFold(row.FromAddr, filter.UserEmail) &&
				!containsAddr(row.ToAddrs, filter.UserEmail) {
				continue
			}
			rows = append(rows, row)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, err
	}

	rows = applyLimitOffset(rows, filter.Limit, filter.Offset)
	return rows, nil
}

func containsAddr(addrs []string, target string) bool {
	for _, a := range addrs {
		if strings.EqualFold(a, target) {
			return true
		}
	}
	return false
}

func applyLimitOffset(rows []*ReceivedRow, limit, offset int) []*ReceivedRow {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// ReceivedUpdate carries the mutable fields update_email may change.
// Nil fields are left untouched.
type ReceivedUpdate struct {
	IsRead     *bool
	IsDeleted  *bool
	IsSpam     *bool
	SpamScore  *float64
	IsRecalled *bool
	RecalledAt *time.Time
	RecalledBy *string
}

// UpdateReceived applies a partial update to the row identified by
// messageID. It reports whether a row was found and updated.
func (r *Repository) UpdateReceived(ctx context.Context, messageID string, upd ReceivedUpdate) (bool, error) {
	var sets []string
	var args []any

	if upd.IsRead != nil {
		sets = append(sets, "is_read = ?")
		args = append(args, boolToInt(*upd.IsRead))
	}
	if upd.IsDeleted != nil {
		sets = append(sets, "is_deleted = ?")
		args = append(args, boolToInt(*upd.IsDeleted))
	}
	if upd.IsSpam != nil {
		sets = append(sets, "is_spam = ?")
		args = append(args, boolToInt(*upd.IsSpam))
	}
	if upd.SpamScore != nil {
		sets = append(sets, "spam_score = ?")
		args = append(args, *upd.SpamScore)
	}
	if upd.IsRecalled != nil {
		sets = append(sets, "is_recalled = ?")
		args = append(args, boolToInt(*upd.IsRecalled))
	}
	if upd.RecalledAt != nil {
		sets = append(sets, "recalled_at = ?")
		args = append(args, upd.RecalledAt.UTC().Format(time.RFC3339))
	}
	if upd.RecalledBy != nil {
		sets = append(sets, "recalled_by = ?")
		args = append(args, *upd.RecalledBy)
	}
	if len(sets) == 0 {
		return false, nil
	}

	args = append(args, messageID)
	query := fmt.Sprintf(`UPDATE emails SET %s WHERE message_id = ?`, strings.Join(sets, ", "))

	var ok bool
	err := dbpool.Retry(ctx, func() error {
		res, execErr := r.pool.DB().ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		n, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		ok = n > 0
		return nil
	})
	return ok, err
}

// DeleteReceivedRow hard-deletes the metadata row for messageID. It
// reports whether a row existed.
func (r *Repository) DeleteReceivedRow(ctx context.Context, messageID string) (bool, error) {
	var ok bool
	err := dbpool.Retry(ctx, func() error {
		res, execErr := r.pool.DB().ExecContext(ctx, `DELETE FROM emails WHERE message_id = ?`, messageID)
		if execErr != nil {
			return execErr
		}
		n, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		ok = n > 0
		return nil
	})
	return ok, err
}
