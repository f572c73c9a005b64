// Package maild contains the CLI wiring for the mail daemon: flag/env/file
// configuration via koanf, construction of every subsystem, and graceful
// shutdown on SIGINT/SIGTERM.
package maild

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	kposflag "github.com/knadh/koanf/providers/posflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hopecommon/cs3611-email-sub000/internal/accounts"
	"github.com/hopecommon/cs3611-email-sub000/internal/config"
	"github.com/hopecommon/cs3611-email-sub000/internal/dbpool"
	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailservice"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailstore"
	"github.com/hopecommon/cs3611-email-sub000/internal/metrics"
	"github.com/hopecommon/cs3611-email-sub000/internal/pop3d"
	"github.com/hopecommon/cs3611-email-sub000/internal/smtpd"
	"github.com/hopecommon/cs3611-email-sub000/internal/spam"
)

var rootCmd = &cobra.Command{
	Use:   "maild",
	Short: "Content-addressed SMTP/POP3 mail daemon",
	Long:  "maild runs the SMTP submission/relay server and the POP3 retrieval server against a shared, content-addressed mail store.",
	RunE:  run,
}

// RegisterFlags registers persistent flags for the root command. This
// replaces an init() function so callers control evaluation order.
func RegisterFlags() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file path (YAML)")

	pf.String("smtp-listen-address", "", "SMTP listen address")
	pf.Int("smtp-port", config.DefaultSMTPPort, "SMTP plaintext submission port")
	pf.Int("smtp-tls-port", config.DefaultSMTPTLSPort, "SMTP implicit-TLS port")
	pf.Bool("smtp-require-auth", true, "Require AUTH before MAIL FROM")
	pf.String("hostname", "localhost", "Hostname advertised in banners and certificates")
	pf.Int64("smtp-max-data-bytes", config.DefaultMaxDataBytes, "Maximum DATA payload size in bytes")

	pf.String("pop3-listen-address", "", "POP3 listen address")
	pf.Int("pop3-port", config.DefaultPOP3Port, "POP3 plaintext port")
	pf.Int("pop3-tls-port", config.DefaultPOP3TLSPort, "POP3 implicit-TLS port")
	pf.Duration("pop3-idle-timeout", config.DefaultPOP3IdleTimeout, "POP3 connection idle timeout")

	pf.String("tls-cert-file", "", "Path to TLS certificate file")
	pf.String("tls-key-file", "", "Path to TLS private key file")

	pf.String("store-database-path", "./maild.db", "SQLite database path")
	pf.String("store-email-storage-dir", "./mailstore", "Directory holding deduplicated .eml files")
	pf.Int("store-db-pool-size", config.DefaultDBPoolSize, "SQLite connection pool size")

	pf.Int("max-connections", config.DefaultMaxConnections, "Maximum concurrent connections per listener")
	pf.Duration("graceful-shutdown-timeout", config.DefaultGracefulShutdownTimeout, "Time to wait for in-flight sessions on shutdown")

	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "json", "Log format: json or text")
	pf.String("log-output", "stdout", "Log output: stdout, syslog, tcp, udp")

	pf.Bool("metrics-enabled", true, "Collect Prometheus metrics in-process")
}

func createEnvReplacer() *strings.Replacer {
	return strings.NewReplacer("-", "_", ".", "_")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	k := koanf.New(".")

	if err := k.Load(kposflag.Provider(cmd.PersistentFlags(), ".", k), nil); err != nil {
		return config.Config{}, fmt.Errorf("loading flags: %w", err)
	}

	cfgPath, err := cmd.PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("reading config flag: %w", err)
	}
	if cfgPath != "" {
		if err := k.Load(kfile.Provider(cfgPath), kyaml.Parser()); err != nil {
			return config.Config{}, fmt.Errorf("loading config file %s: %w", cfgPath, err)
		}
	} else {
		for _, fn := range []string{"maild.yaml", "maild.yml"} {
			if _, err := os.Stat(fn); err == nil {
				if err := k.Load(kfile.Provider(fn), kyaml.Parser()); err != nil {
					return config.Config{}, fmt.Errorf("loading config file %s: %w", fn, err)
				}
				break
			}
		}
	}

	// MAILD_SMTP_PORT maps to the "smtp-port" key, and so on.
	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "MAILD_")), "_", "-")
	}
	if err := k.Load(kenv.Provider("MAILD_", ".", envKey), nil); err != nil {
		return config.Config{}, fmt.Errorf("loading environment: %w", err)
	}

	// Flags are loaded again last so an explicitly given flag wins over env
	// and file; unchanged flags are skipped here, since the first load
	// already set their defaults.
	if err := k.Load(kposflag.Provider(cmd.PersistentFlags(), ".", k), nil); err != nil {
		return config.Config{}, fmt.Errorf("loading flags: %w", err)
	}

	cfg := config.Config{
		SMTP: config.SMTPConfig{
			ListenAddress: k.String("smtp-listen-address"),
			Port:          k.Int("smtp-port"),
			TLSPort:       k.Int("smtp-tls-port"),
			RequireAuth:   k.Bool("smtp-require-auth"),
			Hostname:      k.String("hostname"),
			MaxDataBytes:  int64(k.Int64("smtp-max-data-bytes")),
		},
		POP3: config.POP3Config{
			ListenAddress: k.String("pop3-listen-address"),
			Port:          k.Int("pop3-port"),
			TLSPort:       k.Int("pop3-tls-port"),
			Hostname:      k.String("hostname"),
			IdleTimeout:   k.Duration("pop3-idle-timeout"),
		},
		TLS: config.TLSConfig{
			CertFile: k.String("tls-cert-file"),
			KeyFile:  k.String("tls-key-file"),
			Hostname: k.String("hostname"),
		},
		Store: config.StoreConfig{
			DatabasePath:    k.String("store-database-path"),
			EmailStorageDir: k.String("store-email-storage-dir"),
			DBPoolSize:      k.Int("store-db-pool-size"),
		},
		MaxConnections:          k.Int("max-connections"),
		GracefulShutdownTimeout: k.Duration("graceful-shutdown-timeout"),
		LogLevel:                k.String("log-level"),
		LogFormat:               k.String("log-format"),
		LogOutput:               k.String("log-output"),
	}
	cfg.EnsureDefaults()
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.LogConfig{
		Level:  logging.ParseLogLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	pool, err := dbpool.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	repo, err := mailstore.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("initializing mail store schema: %w", err)
	}
	content, err := mailstore.NewContentManager(cfg.Store.EmailStorageDir)
	if err != nil {
		return fmt.Errorf("initializing content storage: %w", err)
	}
	acctSvc, err := accounts.New(pool)
	if err != nil {
		return fmt.Errorf("initializing account service: %w", err)
	}

	spamCfg := cfg.Spam
	classifier := spam.New(spamCfg.HardBlockKeywords, spamCfg.SuspiciousPatterns, spamCfg.Threshold)
	mailsvc := mailservice.New(repo, content, classifier, logger)

	var collector *metrics.Collector
	if k := cmd.PersistentFlags(); k != nil {
		if enabled, _ := k.GetBool("metrics-enabled"); enabled {
			collector = metrics.New(prometheus.DefaultRegisterer)
		}
	}

	smtpServer := smtpd.NewServer(cfg.SMTP, cfg.TLS, cfg.MaxConnections, acctSvc, mailsvc, logger, collector)
	pop3Server := pop3d.NewServer(cfg.POP3, cfg.TLS, cfg.MaxConnections, acctSvc, mailsvc, logger, collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := smtpServer.Start(ctx); err != nil {
		return fmt.Errorf("starting smtp server: %w", err)
	}
	if err := pop3Server.Start(ctx); err != nil {
		return fmt.Errorf("starting pop3 server: %w", err)
	}

	stopReload := watchConfigReload(cfgPathOrDefault(cmd), logger)
	defer stopReload()

	logger.Info("maild: started", logging.F("smtp_port", cfg.SMTP.Port), logging.F("pop3_port", cfg.POP3.Port))

	<-ctx.Done()
	logger.Info("maild: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := smtpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("maild: smtp shutdown error", err)
	}
	if err := pop3Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("maild: pop3 shutdown error", err)
	}
	return nil
}

func cfgPathOrDefault(cmd *cobra.Command) string {
	path, _ := cmd.PersistentFlags().GetString("config")
	return path
}

// watchConfigReload watches the config file (when one is set) for changes
// and logs them. Hot-reloading subsystem wiring mid-process is out of
// scope; this only gives operators visibility that a reload would be
// needed.
func watchConfigReload(path string, logger logging.Logger) func() {
	if path == "" {
		return func() {}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("maild: config watcher unavailable", logging.F("err", err))
		return func() {}
	}
	if err := watcher.Add(path); err != nil {
		logger.Warn("maild: failed to watch config file", logging.F("path", path), logging.F("err", err))
		watcher.Close()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					logger.Info("maild: config file changed, restart to apply", logging.F("path", event.Name))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("maild: config watcher error", logging.F("err", err))
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		watcher.Close()
	}
}

// Execute sets the version and runs the root command. RegisterFlags must
// be called once before Execute.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}
