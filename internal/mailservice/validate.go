// Package mailservice is the single entry point for email CRUD used by
// the protocol handlers: it hides the split between SQL metadata and .eml
// content, validates and sanitizes ingress payloads, and invokes the spam
// classifier.
package mailservice

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// addrPattern matches the bare local@domain.tld portion of an address,
// whether bare or wrapped in a "Display Name <addr>" form.
var addrPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Draft is the unsanitized input to SaveEmail/SaveSentEmail.
type Draft struct {
	MessageID string
	FromAddr  string
	ToAddrs   []string
	CCAddrs   []string
	BCCAddrs  []string
	Subject   string
	Content   string
	RawEML    []byte
	Date      time.Time
	HasAttachments bool
}

// ValidationError reports which required field or rule failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// bareAddress extracts the local@domain portion from either a bare address
// or a `"Display" <addr>` form.
func bareAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if idx := strings.LastIndex(addr, "<"); idx >= 0 && strings.HasSuffix(addr, ">") {
		return strings.TrimSpace(addr[idx+1 : len(addr)-1])
	}
	return addr
}

// validAddress reports whether addr (bare or "Display" <addr>) carries a
// syntactically valid address under a practical RFC 5322 subset.
func validAddress(addr string) bool {
	return addrPattern.MatchString(bareAddress(addr))
}

// validate runs the required-fields, address-syntax, and date-parseability
// checks. It never mutates d.
func validate(d *Draft) error {
	if strings.TrimSpace(d.MessageID) == "" {
		return &ValidationError{"message_id", "required"}
	}
	if strings.TrimSpace(d.FromAddr) == "" {
		return &ValidationError{"from_addr", "required"}
	}
	if len(d.ToAddrs) == 0 {
		return &ValidationError{"to_addrs", "required"}
	}
	if strings.TrimSpace(d.Subject) == "" && d.Subject != "" {
		// Subject trimmed to whitespace only: treated as empty, not an
		// error — sanitize() defaults it below.
	}
	if d.Date.IsZero() {
		return &ValidationError{"date", "must parse as ISO-8601"}
	}

	if !validAddress(d.FromAddr) {
		return &ValidationError{"from_addr", "invalid address syntax"}
	}
	for _, to := range d.ToAddrs {
		if !validAddress(to) {
			return &ValidationError{"to_addrs", fmt.Sprintf("invalid address syntax: %q", to)}
		}
	}

	return nil
}

// messageIDWarning reports whether messageID looks malformed (missing "@"
// or shorter than 4 characters). Non-fatal: callers log it, never reject.
func messageIDWarning(messageID string) bool {
	stripped := strings.Trim(messageID, "<>")
	return !strings.Contains(stripped, "@") || len(stripped) < 4
}

// normalizeMessageID wraps messageID in <> if not already wrapped.
func normalizeMessageID(messageID string) string {
	trimmed := strings.TrimSpace(messageID)
	if trimmed == "" {
		return trimmed
	}
	if !strings.HasPrefix(trimmed, "<") {
		trimmed = "<" + trimmed
	}
	if !strings.HasSuffix(trimmed, ">") {
		trimmed = trimmed + ">"
	}
	return trimmed
}

// sanitize returns a normalized copy of d: Message-ID wrapped in <>,
// addresses trimmed, subject defaulted. d itself is left untouched.
func sanitize(d Draft) Draft {
	out := d
	out.MessageID = normalizeMessageID(d.MessageID)
	out.FromAddr = strings.TrimSpace(d.FromAddr)

	out.ToAddrs = trimAll(d.ToAddrs)
	out.CCAddrs = trimAll(d.CCAddrs)
	out.BCCAddrs = trimAll(d.BCCAddrs)

	if strings.TrimSpace(d.Subject) == "" {
		out.Subject = "(no subject)"
	} else {
		out.Subject = d.Subject
	}

	return out
}

func trimAll(addrs []string) []string {
	if addrs == nil {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = strings.TrimSpace(a)
	}
	return out
}
