package mailstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/dbpool"
)

const sentColumns = `id, message_id, from_addr, to_addrs, cc_addrs, bcc_addrs, subject, date, size,
	is_read, is_deleted, is_spam, spam_score, content_path, has_attachments, status,
	is_recalled, recalled_at, recalled_by`

func scanSentRow(scan func(dest ...any) error) (*SentRow, error) {
	var row SentRow
	var toAddrs, ccAddrs, bccAddrs, dateStr, recalledAtStr string
	var isRead, isDeleted, isSpam, hasAttachments, isRecalled int

	err := scan(&row.ID, &row.MessageID, &row.FromAddr, &toAddrs, &ccAddrs, &bccAddrs,
		&row.Subject, &dateStr, &row.Size, &isRead, &isDeleted, &isSpam, &row.SpamScore,
		&row.ContentPath, &hasAttachments, &row.Status, &isRecalled, &recalledAtStr, &row.RecalledBy)
	if err != nil {
		return nil, err
	}

	row.ToAddrs = decodeAddrs(toAddrs)
	row.CCAddrs = decodeAddrs(ccAddrs)
	row.BCCAddrs = decodeAddrs(bccAddrs)
	row.IsRead = isRead != 0
	row.IsDeleted = isDeleted != 0
	row.IsSpam = isSpam != 0
	row.HasAttachments = hasAttachments != 0
	row.IsRecalled = isRecalled != 0
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		row.Date = t
	}
	if t, err := time.Parse(time.RFC3339, recalledAtStr); err == nil {
		row.RecalledAt = t
	}
	return &row, nil
}

// InsertSent inserts row into sent_emails, ignoring the insert if
// message_id already exists (same dedup semantics as InsertReceived).
func (r *Repository) InsertSent(ctx context.Context, row *SentRow) (inserted bool, err error) {
	toAddrs, err := encodeAddrs(row.ToAddrs)
	if err != nil {
		return false, err
	}
	ccAddrs, err := encodeAddrs(row.CCAddrs)
	if err != nil {
		return false, err
	}
	bccAddrs, err := encodeAddrs(row.BCCAddrs)
	if err != nil {
		return false, err
	}

	status := row.Status
	if status == "" {
		status = "sent"
	}

	err = dbpool.Retry(ctx, func() error {
		res, execErr := r.pool.DB().ExecContext(ctx, `
			INSERT OR IGNORE INTO sent_emails
				(message_id, from_addr, to_addrs, cc_addrs, bcc_addrs, subject, date, size,
				 is_read, is_deleted, is_spam, spam_score, content_path, has_attachments, status,
				 is_recalled, recalled_at, recalled_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.MessageID, row.FromAddr, toAddrs, ccAddrs, bccAddrs, row.Subject,
			row.Date.UTC().Format(time.RFC3339), row.Size, boolToInt(row.IsRead),
			boolToInt(row.IsDeleted), boolToInt(row.IsSpam), row.SpamScore, row.ContentPath,
			boolToInt(row.HasAttachments), status, boolToInt(row.IsRecalled), "", "")
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

// GetSent fetches a sent row by message_id.
func (r *Repository) GetSent(ctx context.Context, messageID string) (*SentRow, error) {
	var row *SentRow
	err := dbpool.Retry(ctx, func() error {
		rs := r.pool.DB().QueryRowContext(ctx, `SELECT `+sentColumns+` FROM sent_emails WHERE message_id = ?`, messageID)
		var innerErr error
		row, innerErr = scanSentRow(rs.Scan)
		return innerErr
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return row, err
}

// ListSent returns sent rows matching filter, ordered by date DESC.
func (r *Repository) ListSent(ctx context.Context, filter SentFilter) ([]*SentRow, error) {
	var clauses []string
	var args []any

	if !filter.IncludeSpam {
		clauses = append(clauses, "is_spam = 0")
	}
	if filter.IsSpam != nil {
		clauses = append(clauses, "is_spam = ?")
		args = append(args, boolToInt(*filter.IsSpam))
	}
	if filter.FromAddr != "" {
		clauses = append(clauses, "from_addr = ?")
		args = append(args, filter.FromAddr)
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM sent_emails %s ORDER BY date DESC`, sentColumns, where)

	var rows []*SentRow
	err := dbpool.Retry(ctx, func() error {
		rs, execErr := r.pool.DB().QueryContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		defer rs.Close()

		rows = nil
		for rs.Next() {
			row, scanErr := scanSentRow(rs.Scan)
			if scanErr != nil {
				return scanErr
			}
			rows = append(rows, row)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(rows) {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

// SentUpdate carries the mutable fields update_email may change on a sent
// row, mirroring ReceivedUpdate.
type SentUpdate struct {
	IsRead     *bool
	IsDeleted  *bool
	IsSpam     *bool
	SpamScore  *float64
	IsRecalled *bool
	RecalledAt *time.Time
	RecalledBy *string
}

// UpdateSent applies a partial update to the sent row identified by
// messageID, reporting whether a row was found.
func (r *Repository) UpdateSent(ctx context.Context, messageID string, upd SentUpdate) (bool, error) {
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
	query := fmt.Sprintf(`UPDATE sent_emails SET %s WHERE message_id = ?`, strings.Join(sets, ", "))

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

// DeleteSentRow hard-deletes the sent_emails row for messageID.
func (r *Repository) DeleteSentRow(ctx context.Context, messageID string) (bool, error) {
	var ok bool
	err := dbpool.Retry(ctx, func() error {
		res, execErr := r.pool.DB().ExecContext(ctx, `DELETE FROM sent_emails WHERE message_id = ?`, messageID)
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
