package pop3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
)

// statCommand implements STAT (RFC 1939).
type statCommand struct{}

func (s *statCommand) Name() string { return "STAT" }

func (s *statCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	if len(args) > 0 {
		return Response{OK: false, Message: "STAT takes no arguments"}, nil
	}
	return Response{OK: true, Message: fmt.Sprintf("%d %d", sess.MessageCount(), sess.TotalSize())}, nil
}

// listCommand implements LIST (RFC 1939).
type listCommand struct{}

func (l *listCommand) Name() string { return "LIST" }

func (l *listCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}

	if len(args) == 0 {
		entries := sess.AllMessages()
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = fmt.Sprintf("%d %d", e.Num, e.Entry.size)
		}
		return Response{
			OK:      true,
			Message: fmt.Sprintf("%d messages (%d octets)", sess.MessageCount(), sess.TotalSize()),
			Lines:   lines,
		}, nil
	}

	if len(args) != 1 {
		return Response{OK: false, Message: "LIST takes at most one argument"}, nil
	}
	msgNum, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{OK: false, Message: "Invalid message number"}, nil
	}
	entry, err := sess.GetMessage(msgNum)
	if err != nil {
		return listErrResponse(err)
	}
	return Response{OK: true, Message: fmt.Sprintf("%d %d", msgNum, entry.size)}, nil
}

// uidlCommand implements UIDL (RFC 1939).
type uidlCommand struct{}

func (u *uidlCommand) Name() string { return "UIDL" }

func (u *uidlCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}

	if len(args) == 0 {
		entries := sess.AllMessages()
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = fmt.Sprintf("%d %s", e.Num, e.Entry.uid)
		}
		return Response{OK: true, Lines: lines}, nil
	}

	if len(args) != 1 {
		return Response{OK: false, Message: "UIDL takes at most one argument"}, nil
	}
	msgNum, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{OK: false, Message: "Invalid message number"}, nil
	}
	entry, err := sess.GetMessage(msgNum)
	if err != nil {
		return listErrResponse(err)
	}
	return Response{OK: true, Message: fmt.Sprintf("%d %s", msgNum, entry.uid)}, nil
}

// retrCommand implements RETR (RFC 1939).
type retrCommand struct{}

func (r *retrCommand) Name() string { return "RETR" }

func (r *retrCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	if len(args) != 1 {
		return Response{OK: false, Message: "RETR requires a message number"}, nil
	}
	msgNum, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{OK: false, Message: "Invalid message number"}, nil
	}
	entry, err := sess.GetMessage(msgNum)
	if err != nil {
		return listErrResponse(err)
	}

	raw, err := sess.MailService().GetRawContent(ctx, entry.messageID)
	if err != nil {
		if conn != nil {
			conn.Logger().Error("failed to retrieve message content", err, logging.F("message_id", entry.messageID))
		}
		return Response{OK: false, Message: "Failed to retrieve message"}, nil
	}

	lines := normalizeLines(raw)
	return Response{OK: true, Message: fmt.Sprintf("%d octets", octetCount(lines)), Lines: lines}, nil
}

// topCommand implements TOP (RFC 2449): headers plus n lines of body.
type topCommand struct{}

func (t *topCommand) Name() string { return "TOP" }

func (t *topCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	if len(args) != 2 {
		return Response{OK: false, Message: "TOP requires a message number and line count"}, nil
	}
	msgNum, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{OK: false, Message: "Invalid message number"}, nil
	}
	lineCount, err := strconv.Atoi(args[1])
	if err != nil || lineCount < 0 {
		return Response{OK: false, Message: "Invalid line count"}, nil
	}

	entry, err := sess.GetMessage(msgNum)
	if err != nil {
		return listErrResponse(err)
	}

	raw, err := sess.MailService().GetRawContent(ctx, entry.messageID)
	if err != nil {
		if conn != nil {
			conn.Logger().Error("failed to retrieve message content", err, logging.F("message_id", entry.messageID))
		}
		return Response{OK: false, Message: "Failed to retrieve message"}, nil
	}

	lines := topLines(normalizeLines(raw), lineCount)
	return Response{OK: true, Lines: lines}, nil
}

// deleCommand implements DELE (RFC 1939).
type deleCommand struct{}

func (d *deleCommand) Name() string { return "DELE" }

func (d *deleCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	if len(args) != 1 {
		return Response{OK: false, Message: "DELE requires a message number"}, nil
	}
	msgNum, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{OK: false, Message: "Invalid message number"}, nil
	}
	if err := sess.MarkDeleted(msgNum); err != nil {
		if errors.Is(err, ErrMessageDeleted) {
			return Response{OK: true, Message: fmt.Sprintf("Message %d already deleted", msgNum)}, nil
		}
		return listErrResponse(err)
	}
	return Response{OK: true, Message: fmt.Sprintf("message %d deleted", msgNum)}, nil
}

// rsetCommand implements RSET (RFC 1939).
type rsetCommand struct{}

func (r *rsetCommand) Name() string { return "RSET" }

func (r *rsetCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	sess.ResetDeletions()
	return Response{OK: true, Message: fmt.Sprintf("maildrop has %d messages", sess.MessageCount())}, nil
}

// noopCommand implements NOOP (RFC 1939).
type noopCommand struct{}

func (n *noopCommand) Name() string { return "NOOP" }

func (n *noopCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateTransaction {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	return Response{OK: true}, nil
}

func listErrResponse(err error) (Response, error) {
	switch {
	case errors.Is(err, ErrNoSuchMessage), errors.Is(err, ErrMessageDeleted):
		return Response{OK: false, Message: "No such message"}, nil
	default:
		return Response{OK: false, Message: "Mailbox not initialized"}, nil
	}
}

// normalizeLines splits raw into lines with line endings normalized away;
// Response.String applies the dot-stuffing and trailing CRLFs these lines
// need on the wire.
func normalizeLines(raw []byte) []string {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	rawLines := strings.Split(text, "\n")
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" {
		rawLines = rawLines[:len(rawLines)-1]
	}
	return rawLines
}

// octetCount approximates the post-normalization byte count: each line plus
// its trailing CRLF.
func octetCount(lines []string) int {
	total := 0
	for _, l := range lines {
		total += len(l) + 2
	}
	return total
}

// topLines keeps every header line plus up to bodyLines lines of body.
func topLines(lines []string, bodyLines int) []string {
	var out []string
	inBody := false
	bodyCount := 0
	for _, line := range lines {
		if !inBody {
			out = append(out, line)
			if line == "" {
				inBody = true
			}
			continue
		}
		if bodyCount >= bodyLines {
			break
		}
		out = append(out, line)
		bodyCount++
	}
	return out
}

// RegisterTransactionCommands registers STAT/LIST/UIDL/RETR/TOP/DELE/RSET/NOOP.
func RegisterTransactionCommands() {
	RegisterCommand(&statCommand{})
	RegisterCommand(&listCommand{})
	RegisterCommand(&uidlCommand{})
	RegisterCommand(&retrCommand{})
	RegisterCommand(&topCommand{})
	RegisterCommand(&deleCommand{})
	RegisterCommand(&rsetCommand{})
	RegisterCommand(&noopCommand{})
}
