package smtpd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/hopecommon/cs3611-email-sub000/internal/accounts"
	"github.com/hopecommon/cs3611-email-sub000/internal/config"
	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailservice"
	"github.com/hopecommon/cs3611-email-sub000/internal/metrics"
	"github.com/hopecommon/cs3611-email-sub000/internal/netutil"
	"github.com/hopecommon/cs3611-email-sub000/internal/shutdown"
	"github.com/hopecommon/cs3611-email-sub000/internal/tlsutil"
)

// Server runs the plaintext-submission and implicit-TLS SMTP listeners
// side by side, sharing one connection limiter, account service, and mail
// service.
type Server struct {
	cfg      config.SMTPConfig
	tlsCfg   config.TLSConfig
	accounts *accounts.Service
	mailsvc  *mailservice.Service
	logger   logging.Logger
	metrics  *metrics.Collector

	limiter *netutil.ConnectionLimiter
	coord   *shutdown.Coordinator
}

// NewServer builds a Server from its dependencies. Construction never
// opens a socket; call Start to begin listening. collector may be nil, in
// which case metrics are not recorded.
func NewServer(cfg config.SMTPConfig, tlsCfg config.TLSConfig, maxConnections int, acct *accounts.Service, mailsvc *mailservice.Service, logger logging.Logger, collector *metrics.Collector) *Server {
	return &Server{
		cfg:      cfg,
		tlsCfg:   tlsCfg,
		accounts: acct,
		mailsvc:  mailsvc,
		logger:   logger,
		metrics:  collector,
		limiter:  netutil.NewConnectionLimiter(maxConnections),
		coord:    shutdown.New(logger),
	}
}

// Start opens the plaintext and implicit-TLS listeners and serves
// connections until ctx is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	tlsConfig, err := tlsutil.Build(s.tlsCfg)
	if err != nil {
		return fmt.Errorf("building TLS config: %w", err)
	}

	if s.cfg.Port != 0 {
		go s.listenAndServe(s.cfg.Port, nil)
	}
	if s.cfg.TLSPort != 0 {
		go s.listenAndServe(s.cfg.TLSPort, tlsConfig)
	}
	return nil
}

// Shutdown drains active sessions and closes listeners, per
// shutdown.Coordinator's contract.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.coord.Shutdown(ctx)
}

func (s *Server) listenAndServe(port int, tlsConfig *tls.Config) {
	addr := net.JoinHostPort(s.cfg.ListenAddress, fmt.Sprintf("%d", port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("smtpd: failed to listen", err, logging.F("addr", addr))
		return
	}
	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}

	s.coord.AddListener(listener)
	defer s.coord.RemoveListener(listener)

	s.logger.Info("smtpd: listening", logging.F("addr", addr), logging.F("tls", tlsConfig != nil))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.coord.IsShuttingDown() || errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				return
			}
			s.logger.Warn("smtpd: accept failed", logging.F("err", err))
			continue
		}

		if !s.limiter.TryAcquire() {
			_, _ = conn.Write([]byte("421 Too many connections, try again later\r\n"))
			_ = conn.Close()
			continue
		}

		go s.serve(conn, port, tlsConfig != nil)
	}
}

func (s *Server) serve(conn net.Conn, port int, tlsActive bool) {
	defer s.limiter.Release()

	sess := NewSession(conn, s.cfg, s.accounts, s.mailsvc, s.logger, port, tlsActive)
	s.coord.RegisterSession(sess)
	defer s.coord.UnregisterSession(sess)

	if s.metrics != nil {
		s.metrics.ConnectionOpened("smtp", tlsActive)
		defer s.metrics.ConnectionClosed("smtp")
		sess.metrics = s.metrics
	}

	if err := sess.Handle(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("smtpd: session ended", logging.F("err", err))
	}
}
