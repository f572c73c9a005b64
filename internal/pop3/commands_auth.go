package pop3

import (
	"context"
	"fmt"
)

// capaCommand implements CAPA (RFC 2449).
type capaCommand struct{}

func (c *capaCommand) Name() string { return "CAPA" }

func (c *capaCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	return Response{OK: true, Message: "Capability list follows", Lines: sess.Capabilities()}, nil
}

// userCommand implements USER (RFC 1939).
type userCommand struct{}

func (u *userCommand) Name() string { return "USER" }

func (u *userCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateAuthorization {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	if len(args) != 1 || args[0] == "" {
		return Response{OK: false, Message: "USER command requires a username"}, nil
	}
	sess.SetUsername(args[0])
	return Response{OK: true, Message: fmt.Sprintf("User %s accepted, password please", args[0])}, nil
}

// passCommand implements PASS (RFC 1939).
type passCommand struct{}

func (p *passCommand) Name() string { return "PASS" }

func (p *passCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	if sess.State() != StateAuthorization {
		return Response{OK: false, Message: "Command not valid in this state"}, nil
	}
	if sess.Username() == "" {
		return Response{OK: false, Message: "No username specified"}, nil
	}
	if len(args) != 1 {
		return Response{OK: false, Message: "PASS command requires a password"}, nil
	}

	if err := sess.Authenticate(ctx, sess.Username(), args[0]); err != nil {
		if conn != nil {
			conn.Logger().LogAuthentication(sess.Username(), false)
		}
		return Response{OK: false, Message: "Authentication failed"}, nil
	}

	if conn != nil {
		conn.Logger().LogAuthentication(sess.Username(), true)
	}
	return Response{OK: true, Message: fmt.Sprintf("Logged in as %s, %d messages", sess.Username(), sess.MessageCount())}, nil
}

// quitCommand implements QUIT (RFC 1939). In StateTransaction this only
// flips state; the listener performs the UPDATE-phase deletes after
// Execute returns, since that requires I/O this package keeps out of the
// command layer.
type quitCommand struct{}

func (q *quitCommand) Name() string { return "QUIT" }

func (q *quitCommand) Execute(ctx context.Context, sess *Session, conn ConnectionLogger, args []string) (Response, error) {
	message := "Goodbye"
	if sess.State() == StateTransaction {
		sess.EnterUpdate()
		message = "Logging out"
	}
	return Response{OK: true, Message: message}, nil
}

// RegisterAuthCommands registers USER/PASS/CAPA/QUIT.
func RegisterAuthCommands() {
	RegisterCommand(&capaCommand{})
	RegisterCommand(&userCommand{})
	RegisterCommand(&passCommand{})
	RegisterCommand(&quitCommand{})
}
