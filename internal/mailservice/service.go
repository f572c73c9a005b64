package mailservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailfmt"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailstore"
	"github.com/hopecommon/cs3611-email-sub000/internal/spam"
)

// ErrNotFound is returned when an operation addresses a message_id that
// exists in neither the received nor the sent table.
var ErrNotFound = errors.New("mailservice: message not found")

// ErrPermissionDenied is returned by RecallEmail when actorEmail is not the
// message's original sender.
var ErrPermissionDenied = errors.New("mailservice: recall permission denied")

// Service is the mail service façade: the single entry point for email
// CRUD used by both protocol handlers and external collaborators.
type Service struct {
	repo       *mailstore.Repository
	content    *mailstore.ContentManager
	classifier *spam.Classifier
	logger     logging.Logger
}

// New builds a Service over repo/content/classifier.
func New(repo *mailstore.Repository, content *mailstore.ContentManager, classifier *spam.Classifier, logger logging.Logger) *Service {
	return &Service{repo: repo, content: content, classifier: classifier, logger: logger}
}

func (s *Service) warnMessageID(messageID string) {
	if messageIDWarning(messageID) {
		s.logger.Warn("message-id looks malformed", logging.F("message_id", messageID))
	}
}

// SaveEmail validates, sanitizes, canonicalizes, classifies, and durably
// stores an ingress email. It returns success iff both the content write
// and the metadata insert succeed (insert is considered successful whether
// it happened now or had already happened for this Message-ID).
func (s *Service) SaveEmail(ctx context.Context, d Draft) (*EmailRecord, error) {
	if err := validate(&d); err != nil {
		return nil, err
	}
	d = sanitize(d)
	s.warnMessageID(d.MessageID)

	canonical, err := mailfmt.EnsureProperFormat(d.RawEML)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing message: %w", err)
	}

	contentPath, err := s.content.Write(d.MessageID, canonical)
	if err != nil {
		return nil, fmt.Errorf("storing message content: %w", err)
	}

	signal := s.classifier.Classify(d.Subject, d.Content, d.FromAddr)

	row := &mailstore.ReceivedRow{
		MessageID:   d.MessageID,
		FromAddr:    d.FromAddr,
		ToAddrs:     d.ToAddrs,
		Subject:     d.Subject,
		Date:        d.Date,
		Size:        int64(len(canonical)),
		ContentPath: contentPath,
		IsSpam:      signal.IsSpam,
		SpamScore:   signal.Score,
	}
	if _, err := s.repo.InsertReceived(ctx, row); err != nil {
		return nil, fmt.Errorf("saving message metadata: %w", err)
	}

	return s.GetEmail(ctx, d.MessageID, false)
}

// SaveSentEmail is SaveEmail's egress counterpart, additionally recording
// cc/bcc and whether the message carried attachments.
func (s *Service) SaveSentEmail(ctx context.Context, d Draft) (*SentEmailRecord, error) {
	if err := validate(&d); err != nil {
		return nil, err
	}
	d = sanitize(d)
	s.warnMessageID(d.MessageID)

	canonical, err := mailfmt.EnsureProperFormat(d.RawEML)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing message: %w", err)
	}

	contentPath, err := s.content.Write(d.MessageID, canonical)
	if err != nil {
		return nil, fmt.Errorf("storing message content: %w", err)
	}

	signal := s.classifier.Classify(d.Subject, d.Content, d.FromAddr)

	row := &mailstore.SentRow{
		MessageID:      d.MessageID,
		FromAddr:       d.FromAddr,
		ToAddrs:        d.ToAddrs,
		CCAddrs:        d.CCAddrs,
		BCCAddrs:       d.BCCAddrs,
		Subject:        d.Subject,
		Date:           d.Date,
		Size:           int64(len(canonical)),
		ContentPath:    contentPath,
		HasAttachments: d.HasAttachments,
		Status:         "sent",
		IsSpam:         signal.IsSpam,
		SpamScore:      signal.Score,
	}
	if _, err := s.repo.InsertSent(ctx, row); err != nil {
		return nil, fmt.Errorf("saving sent message metadata: %w", err)
	}

	return s.getSentEmail(ctx, d.MessageID, false)
}

func receivedRowToRecord(row *mailstore.ReceivedRow) *EmailRecord {
	return &EmailRecord{
		MessageID:  row.MessageID,
		FromAddr:   row.FromAddr,
		ToAddrs:    row.ToAddrs,
		Subject:    row.Subject,
		Date:       row.Date,
		Size:       row.Size,
		IsRead:     row.IsRead,
		IsDeleted:  row.IsDeleted,
		IsSpam:     row.IsSpam,
		SpamScore:  row.SpamScore,
		IsRecalled: row.IsRecalled,
		RecalledAt: row.RecalledAt,
		RecalledBy: row.RecalledBy,
	}
}

func sentRowToRecord(row *mailstore.SentRow) *SentEmailRecord {
	return &SentEmailRecord{
		MessageID:      row.MessageID,
		FromAddr:       row.FromAddr,
		ToAddrs:        row.ToAddrs,
		CCAddrs:        row.CCAddrs,
		BCCAddrs:       row.BCCAddrs,
		Subject:        row.Subject,
		Date:           row.Date,
		Size:           row.Size,
		IsRead:         row.IsRead,
		IsDeleted:      row.IsDeleted,
		IsSpam:         row.IsSpam,
		SpamScore:      row.SpamScore,
		HasAttachments: row.HasAttachments,
		Status:         row.Status,
		IsRecalled:     row.IsRecalled,
		RecalledAt:     row.RecalledAt,
		RecalledBy:     row.RecalledBy,
	}
}

// contentBodyFor parses the stored .eml for messageID/contentPath into a
// ContentBody, falling back to raw text on parse failure and to a
// minimal synthesized envelope if the content file is missing entirely.
func (s *Service) contentBodyFor(messageID, contentPath, fromAddr string, toAddrs []string, subject string, date time.Time) *ContentBody {
	raw, ok := s.content.Read(messageID, contentPath)
	if !ok {
		raw = minimalEnvelope(messageID, fromAddr, toAddrs, subject, date)
	}

	parsed, err := mailfmt.Parse(raw)
	if err != nil {
		return &ContentBody{TextContent: string(raw)}
	}

	attachments := make([]Attachment, 0, len(parsed.Attachments))
	for _, a := range parsed.Attachments {
		attachments = append(attachments, Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Data:        a.Data,
			Size:        int64(len(a.Data)),
		})
	}

	return &ContentBody{
		TextContent: parsed.TextContent,
		HTMLContent: parsed.HTMLContent,
		Attachments: attachments,
	}
}

func minimalEnvelope(messageID, fromAddr string, toAddrs []string, subject string, date time.Time) []byte {
	var toLine string
	for i, a := range toAddrs {
		if i > 0 {
			toLine += ", "
		}
		toLine += a
	}
	return []byte(fmt.Sprintf(
		"Message-ID: %s\r\nFrom: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Transfer-Encoding: 8bit\r\n\r\n",
		messageID, fromAddr, toLine, subject, date.Format(time.RFC1123Z),
	))
}

// GetRawContent returns the canonicalized .eml bytes for a received email,
// synthesizing a minimal envelope from metadata if the content file is
// missing. Used by POP3's RETR/TOP, which serialize the raw message rather
// than mailservice's parsed ContentBody view.
func (s *Service) GetRawContent(ctx context.Context, messageID string) ([]byte, error) {
	row, err := s.repo.GetReceived(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	raw, ok := s.content.Read(row.MessageID, row.ContentPath)
	if !ok {
		raw = minimalEnvelope(row.MessageID, row.FromAddr, row.ToAddrs, row.Subject, row.Date)
	}
	return raw, nil
}

// GetEmail returns the merged metadata+optional-body view of a received
// email, or (nil, nil) if messageID doesn't exist.
func (s *Service) GetEmail(ctx context.Context, messageID string, includeContent bool) (*EmailRecord, error) {
	row, err := s.repo.GetReceived(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	record := receivedRowToRecord(row)
	if includeContent {
		record.Content = s.contentBodyFor(row.MessageID, row.ContentPath, row.FromAddr, row.ToAddrs, row.Subject, row.Date)
	}
	return record, nil
}

func (s *Service) getSentEmail(ctx context.Context, messageID string, includeContent bool) (*SentEmailRecord, error) {
	row, err := s.repo.GetSent(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	record := sentRowToRecord(row)
	if includeContent {
		record.Content = s.contentBodyFor(row.MessageID, row.ContentPath, row.FromAddr, row.ToAddrs, row.Subject, row.Date)
	}
	return record, nil
}

// GetSentEmail is the exported counterpart of GetEmail for the sent table.
func (s *Service) GetSentEmail(ctx context.Context, messageID string, includeContent bool) (*SentEmailRecord, error) {
	return s.getSentEmail(ctx, messageID, includeContent)
}

// ListEmails returns received emails ordered by date DESC, matching
// userEmail by to_addrs containment OR from_addr equality when set.
func (s *Service) ListEmails(ctx context.Context, filter mailstore.ListFilter) ([]*EmailRecord, error) {
	rows, err := s.repo.ListReceived(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]*EmailRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, receivedRowToRecord(row))
	}
	return records, nil
}

// ListSentEmails returns sent emails ordered by date DESC.
func (s *Service) ListSentEmails(ctx context.Context, filter mailstore.SentFilter) ([]*SentEmailRecord, error) {
	rows, err := s.repo.ListSent(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]*SentEmailRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, sentRowToRecord(row))
	}
	return records, nil
}

// UpdatePatch carries the fields update_email may change; nil fields are
// left untouched.
type UpdatePatch struct {
	IsRead    *bool
	IsDeleted *bool
	IsSpam    *bool
	SpamScore *float64
}

// UpdateEmail tries the received table first, falling back to the sent
// table. Per the preserved source semantics, a delete (IsDeleted=true) on
// an id present in neither table still succeeds: POP3's UPDATE phase
// depends on exactly this idempotence when replaying DELE commands across
// a session whose snapshot may already be stale.
func (s *Service) UpdateEmail(ctx context.Context, messageID string, patch UpdatePatch) error {
	recvUpd := mailstore.ReceivedUpdate{
		IsRead: patch.IsRead, IsDeleted: patch.IsDeleted, IsSpam: patch.IsSpam, SpamScore: patch.SpamScore,
	}
	ok, err := s.repo.UpdateReceived(ctx, messageID, recvUpd)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	sentUpd := mailstore.SentUpdate{
		IsRead: patch.IsRead, IsDeleted: patch.IsDeleted, IsSpam: patch.IsSpam, SpamScore: patch.SpamScore,
	}
	ok, err = s.repo.UpdateSent(ctx, messageID, sentUpd)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if patch.IsDeleted != nil && *patch.IsDeleted {
		return nil
	}
	return ErrNotFound
}

// DeleteEmail soft-deletes (tombstone via UpdateEmail) unless permanent,
// in which case it hard-deletes the metadata row. The content file is
// removed only once neither table references messageID any more, since a
// self-addressed message legitimately owns one content file from both
// tables.
func (s *Service) DeleteEmail(ctx context.Context, messageID string, permanent bool) error {
	if !permanent {
		deleted := true
		return s.UpdateEmail(ctx, messageID, UpdatePatch{IsDeleted: &deleted})
	}

	recvRow, err := s.repo.GetReceived(ctx, messageID)
	if err != nil {
		return err
	}
	sentRow, err := s.repo.GetSent(ctx, messageID)
	if err != nil {
		return err
	}
	if recvRow == nil && sentRow == nil {
		return nil
	}

	if recvRow != nil {
		if _, err := s.repo.DeleteReceivedRow(ctx, messageID); err != nil {
			return err
		}
	}
	if sentRow != nil {
		if _, err := s.repo.DeleteSentRow(ctx, messageID); err != nil {
			return err
		}
	}

	stillReferenced, err := s.messageIDStillReferenced(ctx, messageID)
	if err != nil {
		return err
	}
	if !stillReferenced {
		contentPath := ""
		if recvRow != nil {
			contentPath = recvRow.ContentPath
		} else if sentRow != nil {
			contentPath = sentRow.ContentPath
		}
		if err := s.content.Remove(messageID, contentPath); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) messageIDStillReferenced(ctx context.Context, messageID string) (bool, error) {
	recvRow, err := s.repo.GetReceived(ctx, messageID)
	if err != nil {
		return false, err
	}
	if recvRow != nil {
		return true, nil
	}
	sentRow, err := s.repo.GetSent(ctx, messageID)
	if err != nil {
		return false, err
	}
	return sentRow != nil, nil
}

// SearchEmails substring-matches query against subject/from_addr/to_addrs
// across the tables named by includeReceived/includeSent, merging and
// sorting by date DESC.
func (s *Service) SearchEmails(ctx context.Context, query string, includeReceived, includeSent bool, limit int) ([]mailstore.SearchResult, error) {
	return s.repo.Search(ctx, query, includeReceived, includeSent, limit)
}

// RecallEmail flips is_recalled, records recalled_at/recalled_by, after
// verifying actorEmail is the message's original sender. It checks the
// received table first, then the sent table, matching UpdateEmail's
// fallback order.
func (s *Service) RecallEmail(ctx context.Context, messageID, actorEmail string) error {
	recvRow, err := s.repo.GetReceived(ctx, messageID)
	if err != nil {
		return err
	}
	if recvRow != nil {
		if recvRow.FromAddr != actorEmail {
			return ErrPermissionDenied
		}
		now := time.Now().UTC()
		recalled := true
		_, err := s.repo.UpdateReceived(ctx, messageID, mailstore.ReceivedUpdate{
			IsRecalled: &recalled, RecalledAt: &now, RecalledBy: &actorEmail,
		})
		return err
	}

	sentRow, err := s.repo.GetSent(ctx, messageID)
	if err != nil {
		return err
	}
	if sentRow == nil {
		return ErrNotFound
	}
	if sentRow.FromAddr != actorEmail {
		return ErrPermissionDenied
	}
	now := time.Now().UTC()
	recalled := true
	_, err = s.repo.UpdateSent(ctx, messageID, mailstore.SentUpdate{
		IsRecalled: &recalled, RecalledAt: &now, RecalledBy: &actorEmail,
	})
	return err
}
