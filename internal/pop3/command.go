package pop3

import (
	"context"
	"fmt"
	"strings"

	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
)

// ConnectionLogger exposes the per-connection logger to commands.
type ConnectionLogger interface {
	Logger() *logging.POP3Logger
}

// Command is one executable POP3 command.
type Command interface {
	// Name returns the command name (e.g. "USER", "RETR").
	Name() string
	// Execute runs the command, returning a Response without the +OK/-ERR
	// prefix (String adds it).
	Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error)
}

// Response is a POP3 reply, single- or multi-line.
type Response struct {
	OK      bool
	Message string
	// Lines holds multi-line response data, dot-terminated by String.
	Lines []string
}

// String formats r as a wire-ready POP3 reply.
func (r Response) String() string {
	var sb strings.Builder
	if r.OK {
		sb.WriteString("+OK")
	} else {
		sb.WriteString("-ERR")
	}
	if r.Message != "" {
		sb.WriteString(" ")
		sb.WriteString(r.Message)
	}
	sb.WriteString("\r\n")

	if r.Lines != nil {
		for _, line := range r.Lines {
			if strings.HasPrefix(line, ".") {
				sb.WriteString(".")
			}
			sb.WriteString(line)
			sb.WriteString("\r\n")
		}
		sb.WriteString(".\r\n")
	}
	return sb.String()
}

var commandRegistry = make(map[string]Command)

// RegisterCommand adds cmd to the registry, keyed by its upper-cased name.
func RegisterCommand(cmd Command) {
	commandRegistry[strings.ToUpper(cmd.Name())] = cmd
}

// GetCommand looks up a registered command by name.
func GetCommand(name string) (Command, bool) {
	cmd, ok := commandRegistry[strings.ToUpper(name)]
	return cmd, ok
}

// ParseCommand splits a command line into name and whitespace-separated
// arguments.
func ParseCommand(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, fmt.Errorf("empty command")
	}
	parts := strings.Fields(line)
	return strings.ToUpper(parts[0]), parts[1:], nil
}
