package pop3

import (
	"reflect"
	"testing"
)

func newTestSession(entries ...snapshotEntry) *Session {
	return &Session{
		state:      StateTransaction,
		hostname:   "mail.example.com",
		snapshot:   entries,
		deletedSet: make(map[int]bool),
	}
}

func TestUidFor(t *testing.T) {
	cases := map[string]string{
		"<abc123@mail.example.com>": "abc123@mail.example.com",
		"abc123@mail.example.com":   "abc123@mail.example.com",
		"<>":                        "",
	}
	for in, want := range cases {
		if got := uidFor(in); got != want {
			t.Errorf("uidFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessageCountAndTotalSize(t *testing.T) {
	s := newTestSession(
		snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 100},
		snapshotEntry{messageID: "<2@x>", uid: "2@x", size: 250},
	)
	if got := s.MessageCount(); got != 2 {
		t.Errorf("MessageCount() = %d, want 2", got)
	}
	if got := s.TotalSize(); got != 350 {
		t.Errorf("TotalSize() = %d, want 350", got)
	}

	if err := s.MarkDeleted(1); err != nil {
		t.Fatalf("MarkDeleted(1) error: %v", err)
	}
	if got := s.MessageCount(); got != 1 {
		t.Errorf("MessageCount() after delete = %d, want 1", got)
	}
	if got := s.TotalSize(); got != 250 {
		t.Errorf("TotalSize() after delete = %d, want 250", got)
	}
}

func TestSnapshotNumberingSurvivesDele(t *testing.T) {
	s := newTestSession(
		snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 10},
		snapshotEntry{messageID: "<2@x>", uid: "2@x", size: 20},
		snapshotEntry{messageID: "<3@x>", uid: "3@x", size: 30},
	)

	if err := s.MarkDeleted(2); err != nil {
		t.Fatalf("MarkDeleted(2) error: %v", err)
	}

	// Message 3 must still be reachable under its original number; the
	// snapshot itself never renumbers or shrinks mid-session.
	entry, err := s.GetMessage(3)
	if err != nil {
		t.Fatalf("GetMessage(3) error: %v", err)
	}
	if entry.messageID != "<3@x>" {
		t.Errorf("GetMessage(3).messageID = %q, want <3@x>", entry.messageID)
	}

	if _, err := s.GetMessage(2); err != ErrMessageDeleted {
		t.Errorf("GetMessage(2) error = %v, want ErrMessageDeleted", err)
	}

	all := s.AllMessages()
	if len(all) != 2 || all[0].Num != 1 || all[1].Num != 3 {
		t.Errorf("AllMessages() = %#v, want nums [1, 3]", all)
	}
}

// Session.MarkDeleted itself still reports ErrMessageDeleted on a second
// call against the same message number; deleCommand.Execute is what turns
// that into the idempotent "already deleted" DELE response, so this only
// checks the lower-level primitive's own contract.
func TestMarkDeletedRejectsOutOfRangeAndDouble(t *testing.T) {
	s := newTestSession(snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 10})

	if err := s.MarkDeleted(5); err != ErrNoSuchMessage {
		t.Errorf("MarkDeleted(5) error = %v, want ErrNoSuchMessage", err)
	}
	if err := s.MarkDeleted(1); err != nil {
		t.Fatalf("MarkDeleted(1) error: %v", err)
	}
	if err := s.MarkDeleted(1); err != ErrMessageDeleted {
		t.Errorf("MarkDeleted(1) twice error = %v, want ErrMessageDeleted", err)
	}
}

func TestResetDeletionsRestoresVisibility(t *testing.T) {
	s := newTestSession(
		snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 10},
		snapshotEntry{messageID: "<2@x>", uid: "2@x", size: 20},
	)
	_ = s.MarkDeleted(1)
	s.ResetDeletions()

	if got := s.MessageCount(); got != 2 {
		t.Errorf("MessageCount() after ResetDeletions = %d, want 2", got)
	}
	if _, err := s.GetMessage(1); err != nil {
		t.Errorf("GetMessage(1) after ResetDeletions error: %v", err)
	}
}

func TestDeletedMessageIDs(t *testing.T) {
	s := newTestSession(
		snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 10},
		snapshotEntry{messageID: "<2@x>", uid: "2@x", size: 20},
		snapshotEntry{messageID: "<3@x>", uid: "3@x", size: 30},
	)
	_ = s.MarkDeleted(1)
	_ = s.MarkDeleted(3)

	got := s.DeletedMessageIDs()
	want := map[string]bool{"<1@x>": true, "<3@x>": true}
	if len(got) != 2 {
		t.Fatalf("DeletedMessageIDs() = %v, want 2 entries", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected deleted id %q", id)
		}
	}
}

func TestEnterUpdateOnlyFromTransaction(t *testing.T) {
	s := newTestSession()
	s.state = StateAuthorization
	s.EnterUpdate()
	if s.State() != StateAuthorization {
		t.Errorf("EnterUpdate from AUTHORIZATION changed state to %v", s.State())
	}

	s.state = StateTransaction
	s.EnterUpdate()
	if s.State() != StateUpdate {
		t.Errorf("EnterUpdate from TRANSACTION left state at %v, want UPDATE", s.State())
	}
}

func TestCapabilities(t *testing.T) {
	s := newTestSession()
	want := []string{"TOP", "UIDL", "USER", "RESP-CODES", "PIPELINING", "AUTH-RESP-CODE"}
	if got := s.Capabilities(); !reflect.DeepEqual(got, want) {
		t.Errorf("Capabilities() = %v, want %v", got, want)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateAuthorization: "AUTHORIZATION",
		StateTransaction:   "TRANSACTION",
		StateUpdate:        "UPDATE",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
