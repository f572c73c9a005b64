// Package logging provides structured logging shared by the SMTP and POP3
// servers.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"
)

// sessionIDBytes is the number of random bytes used for session ID generation.
const sessionIDBytes = 12

func generateSessionID(prefix string) string {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%x", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(b)
}

func remoteIP(conn net.Conn) string {
	if conn == nil {
		return ""
	}
	addr := conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// SMTPLogger adds SMTP session context (client IP, session id, hostname) to
// every log line.
type SMTPLogger struct {
	Logger
	sessionID string
	clientIP  string
	hostname  string
}

// NewSMTPLogger creates an SMTP logger bound to a connection.
func NewSMTPLogger(logger Logger, conn net.Conn, hostname string) *SMTPLogger {
	sessionID := generateSessionID("smtp")
	clientIP := remoteIP(conn)
	return &SMTPLogger{
		Logger:    logger.With(F("session_id", sessionID)),
		sessionID: sessionID,
		clientIP:  clientIP,
		hostname:  hostname,
	}
}

func (l *SMTPLogger) fields(extra ...Field) []Field {
	fields := []Field{F("client_ip", l.clientIP)}
	if l.hostname != "" {
		fields = append(fields, F("hostname", l.hostname))
	}
	return append(fields, extra...)
}

// LogConnection logs connection establishment.
func (l *SMTPLogger) LogConnection(port int, tlsEnabled bool) {
	l.Info("smtp connection established", l.fields(F("port", port), F("tls_enabled", tlsEnabled))...)
}

// LogConnectionClosed logs connection closure.
func (l *SMTPLogger) LogConnectionClosed(duration time.Duration) {
	l.Info("smtp connection closed", l.fields(F("duration_ms", duration.Milliseconds()))...)
}

// LogCommand logs a received command. args are redacted by the caller before
// being passed in for AUTH commands (see RedactAuthArgs).
func (l *SMTPLogger) LogCommand(command string, args []string, state string) {
	fields := l.fields(F("command", command), F("smtp_state", state))
	if len(args) > 0 {
		fields = append(fields, F("args", args))
	}
	l.Debug("smtp command received", fields...)
}

// LogResponse logs the status line sent back to the client.
func (l *SMTPLogger) LogResponse(response, command string) {
	code := ""
	if parts := strings.SplitN(response, " ", 2); len(parts) >= 1 {
		code = parts[0]
	}
	fields := l.fields(F("response_code", code))
	if command != "" {
		fields = append(fields, F("command", command))
	}
	if strings.HasPrefix(code, "4") || strings.HasPrefix(code, "5") {
		l.Warn("smtp error response sent", fields...)
	} else {
		l.Debug("smtp response sent", fields...)
	}
}

// LogAuthentication logs the outcome of an AUTH attempt, never the credential.
func (l *SMTPLogger) LogAuthentication(mechanism, username string, success bool) {
	fields := l.fields(F("auth_mechanism", mechanism), F("username", username), F("success", success))
	if success {
		l.Info("smtp authentication succeeded", fields...)
	} else {
		l.Warn("smtp authentication failed", fields...)
	}
}

// LogMessageStored logs successful ingress of a message.
func (l *SMTPLogger) LogMessageStored(from string, to []string, size int, messageID string, duration time.Duration) {
	l.Info("smtp message accepted",
		l.fields(
			F("mail_from", from),
			F("rcpt_count", len(to)),
			F("message_size", size),
			F("message_id", messageID),
			F("duration_ms", duration.Milliseconds()),
		)...)
}

// LogMessageStorageError logs a failed ingress.
func (l *SMTPLogger) LogMessageStorageError(from string, to []string, err error) {
	l.Error("smtp message storage failed", err, l.fields(F("mail_from", from), F("rcpt_count", len(to)))...)
}

// GetSessionID returns the session id for correlation with other subsystems.
func (l *SMTPLogger) GetSessionID() string { return l.sessionID }

// GetClientIP returns the remote address associated with this session.
func (l *SMTPLogger) GetClientIP() string { return l.clientIP }

// POP3Logger mirrors SMTPLogger for POP3 sessions.
type POP3Logger struct {
	Logger
	sessionID string
	clientIP  string
}

// NewPOP3Logger creates a POP3 logger bound to a connection.
func NewPOP3Logger(logger Logger, conn net.Conn) *POP3Logger {
	sessionID := generateSessionID("pop3")
	return &POP3Logger{
		Logger:    logger.With(F("session_id", sessionID)),
		sessionID: sessionID,
		clientIP:  remoteIP(conn),
	}
}

func (l *POP3Logger) fields(extra ...Field) []Field {
	return append([]Field{F("client_ip", l.clientIP)}, extra...)
}

// LogConnection logs connection establishment.
func (l *POP3Logger) LogConnection(port int, tlsEnabled bool) {
	l.Info("pop3 connection established", l.fields(F("port", port), F("tls_enabled", tlsEnabled))...)
}

// LogConnectionClosed logs connection closure.
func (l *POP3Logger) LogConnectionClosed(duration time.Duration) {
	l.Info("pop3 connection closed", l.fields(F("duration_ms", duration.Milliseconds()))...)
}

// LogCommand logs a received command.
func (l *POP3Logger) LogCommand(command, state string) {
	l.Debug("pop3 command received", l.fields(F("command", command), F("pop3_state", state))...)
}

// LogAuthentication logs the outcome of USER/PASS.
func (l *POP3Logger) LogAuthentication(username string, success bool) {
	fields := l.fields(F("username", username), F("success", success))
	if success {
		l.Info("pop3 authentication succeeded", fields...)
	} else {
		l.Warn("pop3 authentication failed", fields...)
	}
}

// LogUpdateFailure logs a per-message failure during the UPDATE phase.
// These are logged but never abort the phase.
func (l *POP3Logger) LogUpdateFailure(messageID string, err error) {
	l.Error("pop3 deferred delete failed", err, l.fields(F("message_id", messageID))...)
}

// GetSessionID returns the session id for correlation with other subsystems.
func (l *POP3Logger) GetSessionID() string { return l.sessionID }

// RedactAuthArgs returns a copy of args with credential payloads replaced,
// safe to pass to LogCommand for AUTH/USER/PASS lines.
func RedactAuthArgs(command string, args []string) []string {
	if len(args) == 0 {
		return args
	}
	out := make([]string, len(args))
	copy(out, args)
	switch strings.ToUpper(command) {
	case "AUTH":
		if len(out) > 1 {
			out[1] = "[redacted]"
		}
	case "PASS":
		for i := range out {
			out[i] = "[redacted]"
		}
	}
	return out
}
