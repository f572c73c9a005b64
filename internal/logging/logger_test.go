package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func newCapturingLogger(level LogLevel) (*stdoutLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := &stdoutLogger{
		baseLogger: baseLogger{config: LogConfig{Level: level, Format: "json"}, fields: make(map[string]interface{})},
		writer:     buf,
	}
	return l, buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log entry: %v, raw=%s", err, buf.String())
	}
	return entry
}

func TestFormatEntryRedactsSensitiveFieldKeys(t *testing.T) {
	l, buf := newCapturingLogger(INFO)
	l.Info("pop3 authentication attempt", F("username", "alice"), F("password", "hunter2"))

	entry := decodeEntry(t, buf)
	if entry.Fields["password"] != "[redacted]" {
		t.Errorf("Fields[password] = %v, want [redacted]", entry.Fields["password"])
	}
	if entry.Fields["username"] != "alice" {
		t.Errorf("Fields[username] = %v, want alice (non-sensitive fields pass through)", entry.Fields["username"])
	}
}

func TestFormatEntryRedactsOtherSensitiveKeys(t *testing.T) {
	l, buf := newCapturingLogger(INFO)
	l.Info("smtp auth", F("secret", "s3cr3t"), F("token", "abc123"), F("credential", "xyz"))

	entry := decodeEntry(t, buf)
	for _, key := range []string{"secret", "token", "credential"} {
		if entry.Fields[key] != "[redacted]" {
			t.Errorf("Fields[%s] = %v, want [redacted]", key, entry.Fields[key])
		}
	}
}

func TestFormatEntryBelowLevelIsDropped(t *testing.T) {
	l, buf := newCapturingLogger(WARN)
	l.Debug("should not appear")
	l.Info("also should not appear")
	if buf.Len() != 0 {
		t.Errorf("buffer = %q, want empty (below-threshold levels suppressed)", buf.String())
	}

	l.Warn("this appears")
	if buf.Len() == 0 {
		t.Error("Warn at WARN threshold produced no output")
	}
}

func TestWithAccumulatesFieldsAndRedacts(t *testing.T) {
	l, buf := newCapturingLogger(INFO)
	derived := l.With(F("session_id", "abc"), F("password", "leaked"))
	derived.Info("bound logger call")

	entry := decodeEntry(t, buf)
	if entry.Fields["session_id"] != "abc" {
		t.Errorf("Fields[session_id] = %v, want abc", entry.Fields["session_id"])
	}
	if entry.Fields["password"] != "[redacted]" {
		t.Errorf("With-bound password field leaked: %v", entry.Fields["password"])
	}
}

func TestParseLogLevelRoundTrip(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warn":    WARN,
		"warning": WARN,
		"ERROR":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRedactFieldsAppliesCallerReplacements(t *testing.T) {
	original := []string{"AUTH", "PLAIN", "dXNlcgBwYXNz"}
	fields := []Field{F("args", original)}
	out := RedactFields(fields, map[string]interface{}{"args": "[redacted]"})
	if out[0].Value != "[redacted]" {
		t.Errorf("RedactFields did not apply replacement: %v", out[0].Value)
	}
	// Original field slice must be untouched.
	if _, ok := fields[0].Value.([]string); !ok {
		t.Error("RedactFields mutated the input slice")
	}
}
