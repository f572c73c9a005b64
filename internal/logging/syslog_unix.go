//go:build !windows

package logging

import (
	"fmt"
	"log/syslog"
)

var syslogFacilities = map[string]syslog.Priority{
	"mail":   syslog.LOG_MAIL,
	"daemon": syslog.LOG_DAEMON,
	"local0": syslog.LOG_LOCAL0,
	"local1": syslog.LOG_LOCAL1,
	"local2": syslog.LOG_LOCAL2,
	"local3": syslog.LOG_LOCAL3,
	"local4": syslog.LOG_LOCAL4,
	"local5": syslog.LOG_LOCAL5,
	"local6": syslog.LOG_LOCAL6,
	"local7": syslog.LOG_LOCAL7,
}

// syslogLogger writes formatted entries to the local syslog daemon.
type syslogLogger struct {
	baseLogger
	writer *syslog.Writer
}

// NewSyslogLogger opens a syslog connection tagged "maild" under
// config.SyslogFacility, defaulting to LOG_MAIL for mail-system logs.
func NewSyslogLogger(config *LogConfig) (Logger, error) {
	facility, ok := syslogFacilities[config.SyslogFacility]
	if !ok {
		facility = syslog.LOG_MAIL
	}

	writer, err := syslog.New(syslog.LOG_INFO|facility, "maild")
	if err != nil {
		return nil, fmt.Errorf("connecting to syslog: %w", err)
	}
	return &syslogLogger{
		baseLogger: baseLogger{config: *config, fields: make(map[string]interface{})},
		writer:     writer,
	}, nil
}

func (l *syslogLogger) emit(level LogLevel, msg string, err error, fields []Field) {
	data := l.formatEntry(level, msg, err, fields)
	if data == nil {
		return
	}
	line := string(data)
	switch level {
	case DEBUG:
		_ = l.writer.Debug(line)
	case INFO:
		_ = l.writer.Info(line)
	case WARN:
		_ = l.writer.Warning(line)
	case ERROR:
		_ = l.writer.Err(line)
	}
}

func (l *syslogLogger) Debug(msg string, fields ...Field) { l.emit(DEBUG, msg, nil, fields) }
func (l *syslogLogger) Info(msg string, fields ...Field)  { l.emit(INFO, msg, nil, fields) }
func (l *syslogLogger) Warn(msg string, fields ...Field)  { l.emit(WARN, msg, nil, fields) }
func (l *syslogLogger) Error(msg string, err error, fields ...Field) {
	l.emit(ERROR, msg, err, fields)
}

func (l *syslogLogger) With(fields ...Field) Logger {
	return &syslogLogger{
		baseLogger: baseLogger{config: l.config, fields: mergedFields(l.fields, fields)},
		writer:     l.writer,
	}
}

func (l *syslogLogger) SetLevel(level LogLevel) { l.config.Level = level }
