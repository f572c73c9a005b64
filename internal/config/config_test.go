package config

import "testing"

func TestEnsureDefaultsFillsZeroValues(t *testing.T) {
	var c Config
	c.EnsureDefaults()

	if c.SMTP.Port != DefaultSMTPPort {
		t.Errorf("SMTP.Port = %d, want %d", c.SMTP.Port, DefaultSMTPPort)
	}
	if c.SMTP.Hostname != "localhost" {
		t.Errorf("SMTP.Hostname = %q, want localhost", c.SMTP.Hostname)
	}
	if c.POP3.Hostname != c.SMTP.Hostname {
		t.Errorf("POP3.Hostname = %q, want to mirror SMTP.Hostname %q", c.POP3.Hostname, c.SMTP.Hostname)
	}
	if c.POP3.IdleTimeout != DefaultPOP3IdleTimeout {
		t.Errorf("POP3.IdleTimeout = %v, want %v", c.POP3.IdleTimeout, DefaultPOP3IdleTimeout)
	}
	if c.TLS.Hostname != c.SMTP.Hostname {
		t.Errorf("TLS.Hostname = %q, want to mirror SMTP.Hostname", c.TLS.Hostname)
	}
	if c.Store.DBPoolSize != DefaultDBPoolSize {
		t.Errorf("Store.DBPoolSize = %d, want %d", c.Store.DBPoolSize, DefaultDBPoolSize)
	}
	if c.Spam.Threshold != DefaultSpamThreshold {
		t.Errorf("Spam.Threshold = %v, want %v", c.Spam.Threshold, DefaultSpamThreshold)
	}
	if len(c.Spam.HardBlockKeywords) == 0 {
		t.Error("Spam.HardBlockKeywords not defaulted")
	}
	if c.MaxConnections != DefaultMaxConnections {
		t.Errorf("MaxConnections = %d, want %d", c.MaxConnections, DefaultMaxConnections)
	}
	if c.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", c.LogLevel)
	}
	if c.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", c.LogFormat)
	}
}

func TestEnsureDefaultsDoesNotOverrideExplicitValues(t *testing.T) {
	c := Config{
		SMTP: SMTPConfig{Port: 9999, Hostname: "mail.custom.test"},
	}
	c.EnsureDefaults()

	if c.SMTP.Port != 9999 {
		t.Errorf("SMTP.Port = %d, want 9999 (explicit value preserved)", c.SMTP.Port)
	}
	if c.SMTP.Hostname != "mail.custom.test" {
		t.Errorf("SMTP.Hostname = %q, want mail.custom.test", c.SMTP.Hostname)
	}
	// POP3/TLS hostnames mirror the *explicit* SMTP hostname when unset.
	if c.POP3.Hostname != "mail.custom.test" {
		t.Errorf("POP3.Hostname = %q, want mail.custom.test", c.POP3.Hostname)
	}
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	var c Config
	c.EnsureDefaults()
	firstPort, firstHostname, firstPoolSize := c.SMTP.Port, c.SMTP.Hostname, c.Store.DBPoolSize

	c.EnsureDefaults()
	if c.SMTP.Port != firstPort || c.SMTP.Hostname != firstHostname || c.Store.DBPoolSize != firstPoolSize {
		t.Error("EnsureDefaults is not idempotent")
	}
}

func TestDefaultSpamConfigThreshold(t *testing.T) {
	cfg := DefaultSpamConfig()
	if cfg.Threshold != DefaultSpamThreshold {
		t.Errorf("Threshold = %v, want %v", cfg.Threshold, DefaultSpamThreshold)
	}
	if len(cfg.HardBlockKeywords) == 0 || len(cfg.SuspiciousPatterns) == 0 {
		t.Error("DefaultSpamConfig returned empty keyword lists")
	}
}
