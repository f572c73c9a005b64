package smtp

import "testing"

func TestReplyWithExplicitMessage(t *testing.T) {
	got := Reply(Code250, "custom message")
	if got != "250 custom message" {
		t.Errorf("Reply = %q", got)
	}
}

func TestReplyFallsBackToDefaultMessage(t *testing.T) {
	got := Reply(Code535, "")
	if got != "535 Authentication failed" {
		t.Errorf("Reply = %q", got)
	}
}

func TestMultilineReplyFormat(t *testing.T) {
	got := MultilineReply(Code250, "PIPELINING")
	if got != "250-PIPELINING" {
		t.Errorf("MultilineReply = %q", got)
	}
}
