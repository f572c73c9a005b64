// Package pop3 implements the RFC 1939 session state machine: command
// dispatch, the AUTHORIZATION/TRANSACTION/UPDATE states, and the
// per-session inbox snapshot with deferred deletion.
package pop3

import (
	"context"
	"strings"

	"github.com/hopecommon/cs3611-email-sub000/internal/accounts"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailservice"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailstore"
)

// State is one state of the POP3 session state machine.
type State int

const (
	// StateAuthorization is the initial state; USER/PASS/CAPA/QUIT only.
	StateAuthorization State = iota
	// StateTransaction follows a successful PASS.
	StateTransaction
	// StateUpdate is entered by QUIT from StateTransaction; terminal.
	StateUpdate
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateAuthorization:
		return "AUTHORIZATION"
	case StateTransaction:
		return "TRANSACTION"
	case StateUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// snapshotEntry is one message in a session's inbox snapshot, captured at
// TRANSACTION entry and never re-queried for the life of the session.
type snapshotEntry struct {
	messageID string
	uid       string // canonicalized Message-ID with <> stripped
	size      int64
}

// Session is one POP3 client connection.
type Session struct {
	state State

	hostname string
	mailsvc  *mailservice.Service
	accounts *accounts.Service

	username      string
	resolvedEmail string

	snapshot   []snapshotEntry
	deletedSet map[int]bool
}

// NewSession creates a Session in StateAuthorization.
func NewSession(hostname string, accounts *accounts.Service, mailsvc *mailservice.Service) *Session {
	return &Session{
		state:    StateAuthorization,
		hostname: hostname,
		accounts: accounts,
		mailsvc:  mailsvc,
	}
}

// State returns the current session state.
func (s *Session) State() State { return s.state }

// SetUsername stores the username from the USER command.
func (s *Session) SetUsername(username string) { s.username = username }

// Username returns the username given to USER, or "" if none yet.
func (s *Session) Username() string { return s.username }

// Authenticate verifies username/password via the account service and, on
// success, transitions to StateTransaction and loads the inbox snapshot.
func (s *Session) Authenticate(ctx context.Context, username, password string) error {
	user, err := s.accounts.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	records, err := s.mailsvc.ListEmails(ctx, mailstore.ListFilter{UserEmail: user.Email})
	if err != nil {
		return err
	}

	snapshot := make([]snapshotEntry, 0, len(records))
	for _, r := range records {
		snapshot = append(snapshot, snapshotEntry{
			messageID: r.MessageID,
			uid:       uidFor(r.MessageID),
			size:      r.Size,
		})
	}

	s.username = username
	s.resolvedEmail = user.Email
	s.snapshot = snapshot
	s.deletedSet = make(map[int]bool)
	s.state = StateTransaction
	return nil
}

// uidFor derives the stable UIDL identifier: the canonicalized Message-ID
// with its <> wrapping stripped.
func uidFor(messageID string) string {
	return strings.Trim(messageID, "<>")
}

// EnterUpdate transitions StateTransaction -> StateUpdate, called on QUIT.
func (s *Session) EnterUpdate() {
	if s.state == StateTransaction {
		s.state = StateUpdate
	}
}

// MessageCount returns the count of non-deleted messages in the snapshot.
func (s *Session) MessageCount() int {
	count := 0
	for i := range s.snapshot {
		if !s.deletedSet[i+1] {
			count++
		}
	}
	return count
}

// TotalSize returns the total size in bytes of non-deleted messages.
func (s *Session) TotalSize() int64 {
	var total int64
	for i, e := range s.snapshot {
		if !s.deletedSet[i+1] {
			total += e.size
		}
	}
	return total
}

// GetMessage returns the snapshot entry for a 1-based message number.
func (s *Session) GetMessage(msgNum int) (*snapshotEntry, error) {
	if s.snapshot == nil {
		return nil, ErrMailboxNotInitialized
	}
	if msgNum < 1 || msgNum > len(s.snapshot) {
		return nil, ErrNoSuchMessage
	}
	if s.deletedSet[msgNum] {
		return nil, ErrMessageDeleted
	}
	return &s.snapshot[msgNum-1], nil
}

// MarkDeleted records msgNum in the per-session deletion set. The snapshot
// entry is left in place; LIST after DELE still reports original numbering
// per RFC 1939 — deletions only take effect in UPDATE.
func (s *Session) MarkDeleted(msgNum int) error {
	if s.snapshot == nil {
		return ErrMailboxNotInitialized
	}
	if msgNum < 1 || msgNum > len(s.snapshot) {
		return ErrNoSuchMessage
	}
	if s.deletedSet[msgNum] {
		return ErrMessageDeleted
	}
	s.deletedSet[msgNum] = true
	return nil
}

// ResetDeletions clears all deletion marks (RSET).
func (s *Session) ResetDeletions() {
	s.deletedSet = make(map[int]bool)
}

// DeletedMessageIDs returns the Message-IDs marked for deletion, for the
// UPDATE phase to apply as soft-deletes.
func (s *Session) DeletedMessageIDs() []string {
	var ids []string
	for msgNum := range s.deletedSet {
		if msgNum >= 1 && msgNum <= len(s.snapshot) {
			ids = append(ids, s.snapshot[msgNum-1].messageID)
		}
	}
	return ids
}

// snapshotListing is one (1-based number, entry) pair over non-deleted
// messages, for LIST/UIDL.
type snapshotListing struct {
	Num   int
	Entry snapshotEntry
}

// AllMessages returns the non-deleted snapshot in 1-based numbering order.
func (s *Session) AllMessages() []snapshotListing {
	out := make([]snapshotListing, 0, len(s.snapshot))
	for i, e := range s.snapshot {
		if !s.deletedSet[i+1] {
			out = append(out, snapshotListing{Num: i + 1, Entry: e})
		}
	}
	return out
}

// Capabilities lists what CAPA advertises.
func (s *Session) Capabilities() []string {
	return []string{"TOP", "UIDL", "USER", "RESP-CODES", "PIPELINING", "AUTH-RESP-CODE"}
}

// MailService returns the mail service façade, for commands that need to
// fetch raw message content (RETR/TOP).
func (s *Session) MailService() *mailservice.Service { return s.mailsvc }
