// Package config defines the immutable configuration value threaded through
// every subsystem at construction time. Nothing in this package reads a
// file, an environment variable, or a flag — that is cmd/maild's job. The
// core only ever sees a fully-populated Config.
package config

import "time"

// Default port numbers.
const (
	DefaultSMTPPort    = 8025 // 25 in production; 8025 is the unprivileged dev default
	DefaultSMTPTLSPort = 465
	DefaultPOP3Port    = 8110 // 110 in production; 8110 is the unprivileged dev default
	DefaultPOP3TLSPort = 995
)

// Pool, timeout, and threshold defaults.
const (
	DefaultMaxConnections          = 100
	DefaultDBPoolSize              = 30
	DefaultReadTimeout             = 30 * time.Second
	DefaultSMTPIdleTimeout         = 60 * time.Second
	DefaultPOP3IdleTimeout         = 300 * time.Second
	DefaultGracefulShutdownTimeout = 30 * time.Second
	DefaultKeepAlivePeriod         = 30 * time.Second
	DefaultMaxDataBytes            = 10 * 1024 * 1024
	DefaultSpamThreshold           = 0.7
)

// SMTPConfig configures the SMTP listeners.
type SMTPConfig struct {
	ListenAddress string
	Port          int // plaintext submission port
	TLSPort       int // implicit-TLS port
	RequireAuth   bool
	Hostname      string // advertised in EHLO/banner and self-signed cert CN
	MaxDataBytes  int64
}

// POP3Config configures the POP3 listeners.
type POP3Config struct {
	ListenAddress string
	Port          int // plaintext port
	TLSPort       int // implicit-TLS port
	Hostname      string
	IdleTimeout   time.Duration // CONNECTION_IDLE_TIMEOUT
}

// TLSConfig describes where to find (or generate) the server certificate.
type TLSConfig struct {
	CertFile string
	KeyFile  string
	Hostname string // CN/SAN used when generating a self-signed fallback
}

// StoreConfig configures the mail store.
type StoreConfig struct {
	DatabasePath    string // path to the SQLite database file
	EmailStorageDir string // EMAIL_STORAGE_DIR: directory holding .eml files
	DBPoolSize      int
}

// SpamConfig configures the keyword classifier. Held as plain data so the
// classifier package stays free of any I/O.
type SpamConfig struct {
	HardBlockKeywords  []string
	SuspiciousPatterns []string
	Threshold          float64
}

// DefaultSpamConfig returns the built-in keyword lists used when no
// configuration file overrides them.
func DefaultSpamConfig() SpamConfig {
	return SpamConfig{
		HardBlockKeywords: []string{
			"prize", "lottery", "winner", "congratulations winner",
			"free money", "click here now", "act now", "limited time offer",
			"viagra", "weight loss miracle", "nigerian prince",
			"中奖", "免费赠送", "恭喜获奖",
		},
		SuspiciousPatterns: []string{
			"noreply-", "no-reply-", "bulk-mail", "marketing-blast",
		},
		Threshold: DefaultSpamThreshold,
	}
}

// Config is the single immutable value passed to every subsystem
// constructor. Build it once in cmd/maild and never mutate it afterwards.
type Config struct {
	SMTP  SMTPConfig
	POP3  POP3Config
	TLS   TLSConfig
	Store StoreConfig
	Spam  SpamConfig

	MaxConnections          int
	ReadTimeout             time.Duration
	KeepAlivePeriod         time.Duration
	KeepAliveRetry          time.Duration
	GracefulShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
	LogOutput string
}

// EnsureDefaults fills in zero-valued fields with package defaults. It is
// idempotent and safe to call on a Config assembled from partial flags/env.
func (c *Config) EnsureDefaults() {
	if c.SMTP.Port == 0 {
		c.SMTP.Port = DefaultSMTPPort
	}
	if c.SMTP.TLSPort == 0 {
		c.SMTP.TLSPort = DefaultSMTPTLSPort
	}
	if c.SMTP.Hostname == "" {
		c.SMTP.Hostname = "localhost"
	}
	if c.SMTP.MaxDataBytes == 0 {
		c.SMTP.MaxDataBytes = DefaultMaxDataBytes
	}
	if c.POP3.Port == 0 {
		c.POP3.Port = DefaultPOP3Port
	}
	if c.POP3.TLSPort == 0 {
		c.POP3.TLSPort = DefaultPOP3TLSPort
	}
	if c.POP3.Hostname == "" {
		c.POP3.Hostname = c.SMTP.Hostname
	}
	if c.POP3.IdleTimeout == 0 {
		c.POP3.IdleTimeout = DefaultPOP3IdleTimeout
	}
	if c.TLS.Hostname == "" {
		c.TLS.Hostname = c.SMTP.Hostname
	}
	if c.Store.DBPoolSize == 0 {
		c.Store.DBPoolSize = DefaultDBPoolSize
	}
	if c.Store.DatabasePath == "" {
		c.Store.DatabasePath = "./maild.db"
	}
	if c.Store.EmailStorageDir == "" {
		c.Store.EmailStorageDir = "./mailstore"
	}
	if c.Spam.Threshold == 0 {
		c.Spam = DefaultSpamConfig()
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.KeepAlivePeriod == 0 {
		c.KeepAlivePeriod = DefaultKeepAlivePeriod
	}
	if c.KeepAliveRetry == 0 {
		c.KeepAliveRetry = 5 * time.Second
	}
	if c.GracefulShutdownTimeout == 0 {
		c.GracefulShutdownTimeout = DefaultGracefulShutdownTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.LogOutput == "" {
		c.LogOutput = "stdout"
	}
}
