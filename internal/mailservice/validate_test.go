package mailservice

import (
	"testing"
	"time"
)

func validDraft() Draft {
	return Draft{
		MessageID: "abc123@mail.example.com",
		FromAddr:  "alice@example.com",
		ToAddrs:   []string{"bob@example.com"},
		Subject:   "hi",
		Date:      time.Now(),
	}
}

func TestValidateRequiresMessageID(t *testing.T) {
	d := validDraft()
	d.MessageID = "  "
	if err := validate(&d); err == nil {
		t.Error("validate() = nil, want error for missing message_id")
	}
}

func TestValidateRequiresFromAddr(t *testing.T) {
	d := validDraft()
	d.FromAddr = ""
	if err := validate(&d); err == nil {
		t.Error("validate() = nil, want error for missing from_addr")
	}
}

func TestValidateRequiresToAddrs(t *testing.T) {
	d := validDraft()
	d.ToAddrs = nil
	if err := validate(&d); err == nil {
		t.Error("validate() = nil, want error for missing to_addrs")
	}
}

func TestValidateRequiresDate(t *testing.T) {
	d := validDraft()
	d.Date = time.Time{}
	if err := validate(&d); err == nil {
		t.Error("validate() = nil, want error for zero date")
	}
}

func TestValidateRejectsInvalidFromAddr(t *testing.T) {
	d := validDraft()
	d.FromAddr = "not-an-address"
	if err := validate(&d); err == nil {
		t.Error("validate() = nil, want error for invalid from_addr")
	}
}

func TestValidateRejectsInvalidToAddr(t *testing.T) {
	d := validDraft()
	d.ToAddrs = []string{"not-an-address"}
	if err := validate(&d); err == nil {
		t.Error("validate() = nil, want error for invalid to_addrs entry")
	}
}

func TestValidateAcceptsDisplayNameForm(t *testing.T) {
	d := validDraft()
	d.FromAddr = "Alice <alice@example.com>"
	if err := validate(&d); err != nil {
		t.Errorf("validate() error = %v, want nil", err)
	}
}

func TestValidateOK(t *testing.T) {
	d := validDraft()
	if err := validate(&d); err != nil {
		t.Errorf("validate() error = %v, want nil", err)
	}
}

func TestMessageIDWarning(t *testing.T) {
	cases := map[string]bool{
		"<abc@example.com>": false,
		"abc@example.com":   false,
		"noatsign":          true,
		"<a>":               true,
	}
	for id, want := range cases {
		if got := messageIDWarning(id); got != want {
			t.Errorf("messageIDWarning(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestNormalizeMessageIDWrapsInAngleBrackets(t *testing.T) {
	if got := normalizeMessageID("abc@example.com"); got != "<abc@example.com>" {
		t.Errorf("normalizeMessageID = %q", got)
	}
	if got := normalizeMessageID("<abc@example.com>"); got != "<abc@example.com>" {
		t.Errorf("normalizeMessageID (already wrapped) = %q", got)
	}
	if got := normalizeMessageID("   "); got != "" {
		t.Errorf("normalizeMessageID (blank) = %q, want empty", got)
	}
}

func TestSanitizeDefaultsSubjectAndTrimsAddresses(t *testing.T) {
	d := Draft{
		MessageID: "abc@example.com",
		FromAddr:  "  alice@example.com  ",
		ToAddrs:   []string{"  bob@example.com  "},
		Subject:   "   ",
	}
	out := sanitize(d)
	if out.Subject != "(no subject)" {
		t.Errorf("Subject = %q, want (no subject)", out.Subject)
	}
	if out.FromAddr != "alice@example.com" {
		t.Errorf("FromAddr = %q", out.FromAddr)
	}
	if out.ToAddrs[0] != "bob@example.com" {
		t.Errorf("ToAddrs[0] = %q", out.ToAddrs[0])
	}
	if out.MessageID != "<abc@example.com>" {
		t.Errorf("MessageID = %q", out.MessageID)
	}
	// original must be untouched
	if d.FromAddr != "  alice@example.com  " {
		t.Error("sanitize mutated its input Draft")
	}
}

func TestSanitizeKeepsExplicitSubject(t *testing.T) {
	d := validDraft()
	d.Subject = "Real subject"
	out := sanitize(d)
	if out.Subject != "Real subject" {
		t.Errorf("Subject = %q, want unchanged", out.Subject)
	}
}

func TestTrimAllPreservesNil(t *testing.T) {
	if got := trimAll(nil); got != nil {
		t.Errorf("trimAll(nil) = %v, want nil", got)
	}
}
