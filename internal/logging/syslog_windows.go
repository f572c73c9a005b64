//go:build windows

package logging

// syslog(3) has no Windows equivalent; NewSyslogLogger falls back to the
// stdout backend there so a config requesting "syslog" output still
// starts the daemon instead of failing at boot.

// NewSyslogLogger returns a stdout logger on Windows.
func NewSyslogLogger(config *LogConfig) (Logger, error) {
	return NewStdoutLogger(config), nil
}
