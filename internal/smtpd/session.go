// Package smtpd implements the SMTP listener: TLS wrapping, the RFC 5321
// command/response loop, and handoff of completed envelopes to the mail
// service.
package smtpd

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hopecommon/cs3611-email-sub000/internal/accounts"
	"github.com/hopecommon/cs3611-email-sub000/internal/config"
	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailfmt"
	"github.com/hopecommon/cs3611-email-sub000/internal/mailservice"
	"github.com/hopecommon/cs3611-email-sub000/internal/metrics"
	"github.com/hopecommon/cs3611-email-sub000/internal/netutil"
	"github.com/hopecommon/cs3611-email-sub000/internal/smtp"
)

// Session is one SMTP client connection.
type Session struct {
	conn    net.Conn
	reader  *bufio.Reader
	tp      *textproto.Reader
	tlsConn *tls.Conn // non-nil when this connection is implicit-TLS

	ctx    context.Context
	cancel context.CancelFunc

	cfg      config.SMTPConfig
	accounts *accounts.Service
	mailsvc  *mailservice.Service
	logger   *logging.SMTPLogger
	metrics  *metrics.Collector

	state             smtp.State
	heloName          string
	mailFrom          string
	rcptTo            []string
	authenticated     bool
	authenticatedUser string

	startTime time.Time
	quit      chan struct{}
}

// NewSession wraps conn in a Session ready to run.
func NewSession(conn net.Conn, cfg config.SMTPConfig, acct *accounts.Service, mailsvc *mailservice.Service, logger logging.Logger, port int, tlsActive bool) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	reader := bufio.NewReader(conn)
	smtpLogger := logging.NewSMTPLogger(logger, conn, cfg.Hostname)
	smtpLogger.LogConnection(port, tlsActive)

	tlsConn, _ := conn.(*tls.Conn)

	return &Session{
		conn:      conn,
		reader:    reader,
		tp:        textproto.NewReader(reader),
		tlsConn:   tlsConn,
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		accounts:  acct,
		mailsvc:   mailsvc,
		logger:    smtpLogger,
		state:     smtp.StateGreeted,
		startTime: time.Now(),
		quit:      make(chan struct{}),
	}
}

func (s *Session) writeLine(line string) error {
	netutil.ConfigureKeepAlive(s.conn, config.DefaultKeepAlivePeriod)
	_, err := s.conn.Write([]byte(line + "\r\n"))
	if err != nil {
		return err
	}
	s.logger.LogResponse(line, "")
	return nil
}

func (s *Session) readLine() (string, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(config.DefaultReadTimeout))
	return s.tp.ReadLine()
}

// Handle drives the command loop until QUIT, a fatal error, or shutdown.
func (s *Session) Handle() error {
	defer s.conn.Close()

	if err := s.writeLine(smtp.Reply(smtp.Code220, fmt.Sprintf("%s Service ready", s.cfg.Hostname))); err != nil {
		return err
	}

	for {
		select {
		case <-s.quit:
			return nil
		default:
		}

		line, err := s.readLine()
		if err != nil {
			s.logger.LogConnectionClosed(time.Since(s.startTime))
			return err
		}

		if err := s.handleLine(line); err != nil {
			if err == errSessionDone {
				s.logger.LogConnectionClosed(time.Since(s.startTime))
				return nil
			}
			return err
		}
	}
}

var errSessionDone = fmt.Errorf("smtpd: session done")

func (s *Session) handleLine(line string) error {
	cmd, err := smtp.ParseCommand(line)
	if err != nil {
		return s.writeLine(smtp.Reply(smtp.Code500, ""))
	}
	s.logger.LogCommand(cmd.Name, logging.RedactAuthArgs(cmd.Name, cmd.Args), s.state.String())
	if s.metrics != nil {
		s.metrics.CommandProcessed("smtp", cmd.Name)
	}

	if !cmd.IsValid() {
		return s.writeLine(smtp.Reply(smtp.Code500, ""))
	}
	if err := cmd.ValidateArgs(); err != nil {
		return s.writeLine(err.Error())
	}

	switch cmd.Name {
	case smtp.CmdHELO, smtp.CmdEHLO:
		return s.handleHeloEhlo(cmd, line)
	case smtp.CmdAUTH:
		return s.handleAuth(cmd)
	case smtp.CmdMAIL:
		return s.handleMail(cmd, line)
	case smtp.CmdRCPT:
		return s.handleRcpt(cmd, line)
	case smtp.CmdDATA:
		return s.handleData()
	case smtp.CmdRSET:
		return s.handleRset()
	case smtp.CmdNOOP:
		return s.writeLine(smtp.Reply(smtp.Code250, ""))
	case smtp.CmdVRFY:
		return s.writeLine(smtp.Reply(252, "Cannot VRFY user, but will accept message and attempt delivery"))
	case smtp.CmdQUIT:
		return s.handleQuit()
	default:
		return s.writeLine(smtp.Reply(smtp.Code500, ""))
	}
}

func (s *Session) transition(next smtp.State) error {
	if !s.state.CanTransitionTo(next) {
		return s.writeLine(smtp.Reply(smtp.Code503, ""))
	}
	s.state = next
	return nil
}

func (s *Session) handleHeloEhlo(cmd *smtp.Command, line string) error {
	if s.state != smtp.StateGreeted && s.state != smtp.StateIdentified {
		return s.writeLine(smtp.Reply(smtp.Code503, ""))
	}
	s.heloName = cmd.Args[0]
	s.state = smtp.StateIdentified

	if cmd.Name == smtp.CmdHELO {
		return s.writeLine(smtp.Reply(smtp.Code250, s.cfg.Hostname))
	}

	lines := []string{
		smtp.MultilineReply(smtp.Code250, s.cfg.Hostname),
		smtp.MultilineReply(smtp.Code250, "PIPELINING"),
		smtp.MultilineReply(smtp.Code250, "8BITMIME"),
		smtp.MultilineReply(smtp.Code250, fmt.Sprintf("SIZE %d", s.cfg.MaxDataBytes)),
	}
	if !s.authenticated {
		lines = append(lines, smtp.MultilineReply(smtp.Code250, "AUTH PLAIN LOGIN"))
	}
	lines = append(lines, smtp.Reply(smtp.Code250, "OK"))
	for _, l := range lines {
		if err := s.writeLine(l); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) handleAuth(cmd *smtp.Command) error {
	mechanism := strings.ToUpper(cmd.Args[0])
	var initialArg string
	if len(cmd.Args) > 1 {
		initialArg = cmd.Args[1]
	}

	var username string
	var err error
	switch mechanism {
	case "PLAIN":
		username, err = s.runAuthPlain(initialArg)
	case "LOGIN":
		username, err = s.runAuthLogin()
	default:
		return s.writeLine(smtp.Reply(504, "Unrecognized authentication type"))
	}

	if err != nil {
		s.logger.LogAuthentication(mechanism, username, false)
		if s.metrics != nil {
			s.metrics.AuthAttempt("smtp", false)
		}
		return s.writeLine(smtp.Reply(smtp.Code535, ""))
	}

	s.authenticated = true
	s.authenticatedUser = username
	s.logger.LogAuthentication(mechanism, username, true)
	if s.metrics != nil {
		s.metrics.AuthAttempt("smtp", true)
	}
	if err := s.transition(smtp.StateAuthed); err != nil {
		return err
	}
	return s.writeLine(smtp.Reply(smtp.Code235, ""))
}

func (s *Session) handleMail(cmd *smtp.Command, line string) error {
	if s.cfg.RequireAuth && !s.authenticated {
		return s.writeLine(smtp.Reply(smtp.Code530, ""))
	}
	if s.state != smtp.StateIdentified && s.state != smtp.StateAuthed {
		return s.writeLine(smtp.Reply(smtp.Code503, ""))
	}

	arg := smtp.RawArgLine(line, "MAIL")
	s.mailFrom = smtp.ExtractMailboxFromArg(arg)
	s.rcptTo = nil

	if err := s.transition(smtp.StateEnvelopeMail); err != nil {
		return err
	}
	return s.writeLine(smtp.Reply(smtp.Code250, ""))
}

func (s *Session) handleRcpt(cmd *smtp.Command, line string) error {
	if s.state != smtp.StateEnvelopeMail && s.state != smtp.StateEnvelopeRcpt {
		return s.writeLine(smtp.Reply(smtp.Code503, "Error: need MAIL command"))
	}

	arg := smtp.RawArgLine(line, "RCPT")
	rcpt := smtp.ExtractMailboxFromArg(arg)
	if rcpt == "" {
		return s.writeLine(smtp.Reply(smtp.Code501, ""))
	}
	s.rcptTo = append(s.rcptTo, rcpt)

	if err := s.transition(smtp.StateEnvelopeRcpt); err != nil {
		return err
	}
	return s.writeLine(smtp.Reply(smtp.Code250, ""))
}

// handleRset resets the envelope and returns to the post-greeting state,
// preserving authentication. RSET is accepted from any non-terminal state
// per RFC 5321 §4.1.1.5, so this bypasses the state table rather than
// going through transition.
func (s *Session) handleRset() error {
	s.mailFrom = ""
	s.rcptTo = nil
	if s.authenticated {
		s.state = smtp.StateAuthed
	} else {
		s.state = smtp.StateIdentified
	}
	return s.writeLine(smtp.Reply(smtp.Code250, ""))
}

func (s *Session) handleQuit() error {
	_ = s.writeLine(smtp.Reply(smtp.Code221, fmt.Sprintf("%s Service closing transmission channel", s.cfg.Hostname)))
	return errSessionDone
}

func (s *Session) handleData() error {
	if s.state != smtp.StateEnvelopeRcpt {
		return s.writeLine(smtp.Reply(smtp.Code503, "Error: need RCPT command"))
	}
	if err := s.writeLine(smtp.Reply(smtp.Code354, "")); err != nil {
		return err
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(config.DefaultReadTimeout))
	data, err := s.tp.ReadDotBytes()
	if err != nil {
		return err
	}
	if int64(len(data)) > s.cfg.MaxDataBytes {
		return s.writeLine(smtp.Reply(smtp.Code451, "Message too large"))
	}

	startTime := time.Now()
	record, err := s.ingest(data)
	if err != nil {
		s.logger.LogMessageStorageError(s.mailFrom, s.rcptTo, err)
		if s.metrics != nil {
			s.metrics.MessageIngested(false, false, len(data))
		}
		if err := s.transition(smtp.StateIdentified); err != nil {
			return err
		}
		return s.writeLine(smtp.Reply(smtp.Code451, ""))
	}
	if s.metrics != nil {
		s.metrics.MessageIngested(true, record.IsSpam, len(data))
	}

	s.logger.LogMessageStored(s.mailFrom, s.rcptTo, len(data), "", time.Since(startTime))
	if err := s.transition(smtp.StateIdentified); err != nil {
		return err
	}
	s.mailFrom = ""
	s.rcptTo = nil
	return s.writeLine(smtp.Reply(smtp.Code250, "Message accepted for delivery"))
}

// ingest runs the DATA-termination pipeline: parse, patch in a missing
// From/Message-ID, canonicalize, extract plain text, and hand off to the
// mail service.
func (s *Session) ingest(raw []byte) (*mailservice.EmailRecord, error) {
	parsed, err := mailfmt.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	if strings.TrimSpace(mailfmt.Get(parsed.Headers, "From")) == "" {
		parsed.Headers = append(parsed.Headers, mailfmt.HeaderField{Name: "From", Value: s.mailFrom})
		raw = rebuildWithHeaders(raw, parsed.Headers)
	}
	if parsed.MessageID() == "" {
		messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Hostname)
		parsed.Headers = append(parsed.Headers, mailfmt.HeaderField{Name: "Message-ID", Value: messageID})
		raw = rebuildWithHeaders(raw, parsed.Headers)
	}

	canonical, err := mailfmt.EnsureProperFormat(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing message: %w", err)
	}
	reparsed, err := mailfmt.Parse(canonical)
	if err != nil {
		return nil, fmt.Errorf("reparsing canonical message: %w", err)
	}

	plainText := reparsed.TextContent
	if plainText == "" && reparsed.HTMLContent != "" {
		plainText = stripHTMLTags(reparsed.HTMLContent)
	}

	date := time.Now()
	if d, err := mail.ParseDate(mailfmt.Get(reparsed.Headers, "Date")); err == nil {
		date = d
	}

	return s.mailsvc.SaveEmail(s.ctx, mailservice.Draft{
		MessageID: reparsed.MessageID(),
		FromAddr:  s.mailFrom,
		ToAddrs:   s.rcptTo,
		Subject:   reparsed.HeaderValue("Subject"),
		Content:   plainText,
		RawEML:    canonical,
		Date:      date,
	})
}

func rebuildWithHeaders(raw []byte, fields []mailfmt.HeaderField) []byte {
	_, body := mailfmt.SplitHeaderBody(raw)
	rebuilt, err := mailfmt.RebuildMessage(fields, body)
	if err != nil {
		return raw
	}
	return rebuilt
}

func stripHTMLTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CloseForShutdown implements shutdown.Session: it sends a final 421 and
// closes the connection, unblocking the read loop in Handle.
func (s *Session) CloseForShutdown(ctx context.Context) error {
	_ = s.writeLine(smtp.Reply(smtp.Code421, fmt.Sprintf("%s Service shutting down", s.cfg.Hostname)))
	close(s.quit)
	s.cancel()
	return s.conn.Close()
}
