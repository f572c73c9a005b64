package smtp

import (
	"net/mail"
	"strings"
)

// ParseAddress extracts the bare address from a RFC 5322 address string
// (with or without a display name), returning "" if it doesn't parse.
func ParseAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return a.Address
	}
	if a, err := mail.ParseAddress("<" + strings.Trim(s, "<>") + ">"); err == nil {
		return a.Address
	}
	return ""
}

// ExtractMailboxFromArg extracts a mailbox address from a MAIL FROM:/RCPT
// TO: argument, tolerating a FROM:/TO: prefix, angle brackets, and display
// names. Returns "" if no mailbox-shaped token is found.
func ExtractMailboxFromArg(arg string) string {
	upper := strings.ToUpper(arg)
	switch {
	case strings.HasPrefix(upper, "FROM:"):
		arg = arg[len("FROM:"):]
	case strings.HasPrefix(upper, "TO:"):
		arg = arg[len("TO:"):]
	}
	arg = strings.TrimSpace(arg)

	// A bare MAIL FROM:<> (null reverse-path, used for bounces) has no
	// mailbox at all; callers treat this as a valid, empty sender.
	if arg == "<>" {
		return ""
	}

	if addr := ParseAddress(arg); addr != "" {
		return addr
	}
	return strings.Trim(arg, "<>")
}

// NormalizeMailbox lowercases the domain portion of mailbox, preserving
// local-part case, per common mailserver convention.
func NormalizeMailbox(mailbox string) string {
	mailbox = strings.TrimSpace(mailbox)
	at := strings.LastIndex(mailbox, "@")
	if at == -1 {
		return mailbox
	}
	return mailbox[:at] + "@" + strings.ToLower(mailbox[at+1:])
}

// IsValidMailbox reports whether mailbox is a syntactically valid address,
// accepting both bare and "Display Name <addr>" forms.
func IsValidMailbox(mailbox string) bool {
	mailbox = strings.TrimSpace(mailbox)
	if mailbox == "" {
		return false
	}
	if _, err := mail.ParseAddress(mailbox); err == nil {
		return true
	}
	_, err := mail.ParseAddress("<" + strings.Trim(mailbox, "<>") + ">")
	return err == nil
}
