// Package pop3d implements the POP3 listener: TLS wrapping, the connection
// I/O loop around internal/pop3's state machine, and the UPDATE-phase
// deferred deletes that apply a session's DELE marks.
package pop3d

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/accounts"
	"github.com/hopecommon/cs3611-email-sub000/internal/config"
	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailservice"
	"github.com/hopecommon/cs3611-email-sub000/internal/metrics"
	"github.com/hopecommon/cs3611-email-sub000/internal/pop3"
)

// connSession wraps a pop3.Session with the socket I/O and logging a raw
// connection needs. It implements pop3.ConnectionLogger and
// shutdown.Session.
type connSession struct {
	conn net.Conn
	tp   *textproto.Reader

	ctx    context.Context
	cancel context.CancelFunc

	cfg     config.POP3Config
	inner   *pop3.Session
	logger  *logging.POP3Logger
	metrics *metrics.Collector

	idleTimeout time.Duration
	startTime   time.Time
	quit        chan struct{}
}

func newConnSession(conn net.Conn, cfg config.POP3Config, acct *accounts.Service, mailsvc *mailservice.Service, logger logging.Logger, port int, tlsActive bool) *connSession {
	ctx, cancel := context.WithCancel(context.Background())
	pop3Logger := logging.NewPOP3Logger(logger, conn)
	pop3Logger.LogConnection(port, tlsActive)

	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = config.DefaultPOP3IdleTimeout
	}

	return &connSession{
		conn:        conn,
		tp:          textproto.NewReader(bufio.NewReader(conn)),
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		inner:       pop3.NewSession(cfg.Hostname, acct, mailsvc),
		logger:      pop3Logger,
		idleTimeout: idleTimeout,
		startTime:   time.Now(),
		quit:        make(chan struct{}),
	}
}

// Logger implements pop3.ConnectionLogger.
func (c *connSession) Logger() *logging.POP3Logger { return c.logger }

func (c *connSession) writeLine(line string) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(config.DefaultReadTimeout))
	_, err := c.conn.Write([]byte(line))
	return err
}

func (c *connSession) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	return c.tp.ReadLine()
}

// handle drives the command loop from greeting through QUIT.
func (c *connSession) handle() error {
	defer c.conn.Close()

	if err := c.writeLine(fmt.Sprintf("+OK %s POP3 server ready\r\n", c.cfg.Hostname)); err != nil {
		return err
	}

	for {
		select {
		case <-c.quit:
			return nil
		default:
		}

		line, err := c.readLine()
		if err != nil {
			c.logger.LogConnectionClosed(time.Since(c.startTime))
			return err
		}

		name, args, err := pop3.ParseCommand(line)
		if err != nil {
			_ = c.writeLine("-ERR Invalid command\r\n")
			continue
		}
		c.logger.LogCommand(name, c.inner.State().String())
		if c.metrics != nil {
			c.metrics.CommandProcessed("pop3", name)
		}

		cmd, ok := pop3.GetCommand(name)
		if !ok {
			_ = c.writeLine("-ERR Unknown command\r\n")
			continue
		}

		resp, err := cmd.Execute(c.ctx, c.inner, c, args)
		if err != nil {
			_ = c.writeLine(fmt.Sprintf("-ERR %s\r\n", err.Error()))
			continue
		}
		if err := c.writeLine(resp.String()); err != nil {
			return err
		}
		if name == "PASS" && c.metrics != nil {
			c.metrics.AuthAttempt("pop3", resp.OK)
		}

		if name == "QUIT" {
			c.applyDeferredDeletes()
			_ = c.writeLine("+OK POP3 server signing off\r\n")
			c.logger.LogConnectionClosed(time.Since(c.startTime))
			return nil
		}
	}
}

// applyDeferredDeletes runs the UPDATE-phase soft-deletes for every message
// DELE marked this session. Per-message failures are logged but never abort
// the phase.
func (c *connSession) applyDeferredDeletes() {
	if c.inner.State() != pop3.StateUpdate {
		return
	}
	deleted := true
	for _, messageID := range c.inner.DeletedMessageIDs() {
		if err := c.inner.MailService().UpdateEmail(c.ctx, messageID, mailservice.UpdatePatch{IsDeleted: &deleted}); err != nil {
			c.logger.LogUpdateFailure(messageID, err)
		}
	}
}

// CloseForShutdown implements shutdown.Session: it sends a final -ERR and
// closes the connection, unblocking the read loop in handle.
func (c *connSession) CloseForShutdown(ctx context.Context) error {
	_ = c.writeLine("-ERR Server shutting down\r\n")
	close(c.quit)
	c.cancel()
	return c.conn.Close()
}
