package smtp

import "fmt"

// Status codes used by the SMTP session handler, per RFC 5321 and this
// server's failure-semantics table.
const (
	Code220 = 220
	Code221 = 221
	Code235 = 235
	Code250 = 250
	Code334 = 334
	Code354 = 354
	Code421 = 421
	Code451 = 451
	Code500 = 500
	Code501 = 501
	Code503 = 503
	Code530 = 530
	Code535 = 535
	Code550 = 550
)

var statusMessages = map[int]string{
	Code220: "Service ready",
	Code221: "Service closing transmission channel",
	Code235: "Authentication successful",
	Code250: "OK",
	Code354: "Start mail input; end with <CRLF>.<CRLF>",
	Code421: "Service not available, closing transmission channel",
	Code451: "Requested action aborted: local error in processing",
	Code500: "Unrecognized command",
	Code501: "Syntax error in parameters or arguments",
	Code503: "Bad sequence of commands",
	Code530: "Authentication required",
	Code535: "Authentication failed",
	Code550: "Requested action not taken: mailbox unavailable",
}

// Reply formats a single-line SMTP status response: "CODE message".
func Reply(code int, message string) string {
	if message == "" {
		message = statusMessages[code]
	}
	return fmt.Sprintf("%d %s", code, message)
}

// MultilineReply formats an intermediate line of a multi-line reply
// ("CODE-message") as used by EHLO's capability list.
func MultilineReply(code int, message string) string {
	return fmt.Sprintf("%d-%s", code, message)
}
