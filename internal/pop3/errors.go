package pop3

import "errors"

// Protocol-level errors for the POP3 state machine.
var (
	// ErrInvalidState is returned when a command is not valid in the
	// session's current state.
	ErrInvalidState = errors.New("command not valid in current state")

	// ErrNoSuchMessage is returned when a message number doesn't exist in
	// the session's snapshot.
	ErrNoSuchMessage = errors.New("no such message")

	// ErrMessageDeleted is returned when accessing a message already
	// marked for deletion in this session.
	ErrMessageDeleted = errors.New("message already deleted")

	// ErrMailboxNotInitialized is returned when the snapshot is accessed
	// before a successful PASS.
	ErrMailboxNotInitialized = errors.New("mailbox not initialized")
)
