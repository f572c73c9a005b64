package smtpd

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"

	"github.com/hopecommon/cs3611-email-sub000/internal/accounts"
)

// saslAuthenticator adapts accounts.Service to the two-argument PLAIN/LOGIN
// callback shape emersion/go-sasl expects, rejecting a blank username or
// password before ever reaching the account service.
type saslAuthenticator struct {
	ctx      context.Context
	accounts *accounts.Service
}

func (a *saslAuthenticator) plain(identity, username, password string) error {
	_ = identity
	if username == "" || password == "" {
		return fmt.Errorf("blank username or password")
	}
	_, err := a.accounts.Authenticate(a.ctx, username, password)
	return err
}

func (a *saslAuthenticator) login(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("blank username or password")
	}
	_, err := a.accounts.Authenticate(a.ctx, username, password)
	return err
}

// runAuthPlain drives a single AUTH PLAIN exchange, accepting either an
// initial-response argument (AUTH PLAIN <blob>) or prompting with "334 "
// and reading one continuation line, returning the authenticated username
// on success.
func (s *Session) runAuthPlain(initialArg string) (string, error) {
	authr := &saslAuthenticator{ctx: s.ctx, accounts: s.accounts}
	server := sasl.NewPlainServer(authr.plain)

	blob := initialArg
	if blob == "" {
		if err := s.writeLine("334 "); err != nil {
			return "", err
		}
		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		blob = strings.TrimSpace(line)
	}
	if blob == "=" {
		blob = ""
	}

	response, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("invalid base64 in AUTH PLAIN response")
	}

	_, done, err := server.Next(response)
	if err != nil {
		return "", err
	}
	if !done {
		return "", fmt.Errorf("AUTH PLAIN did not complete in one step")
	}

	parts := strings.SplitN(string(response), "\x00", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed AUTH PLAIN response")
	}
	return parts[1], nil
}

// runAuthLogin drives a two-step AUTH LOGIN exchange ("Username:" then
// "Password:" base64 prompts).
func (s *Session) runAuthLogin() (string, error) {
	authr := &saslAuthenticator{ctx: s.ctx, accounts: s.accounts}
	server := sasl.NewLoginServer(authr.login)

	if _, _, err := server.Next(nil); err != nil {
		return "", err
	}

	username, err := s.promptBase64("334 " + base64.StdEncoding.EncodeToString([]byte("Username:")))
	if err != nil {
		return "", err
	}
	if _, _, err := server.Next([]byte(username)); err != nil {
		return "", err
	}

	password, err := s.promptBase64("334 " + base64.StdEncoding.EncodeToString([]byte("Password:")))
	if err != nil {
		return "", err
	}
	_, done, err := server.Next([]byte(password))
	if err != nil {
		return "", err
	}
	if !done {
		return "", fmt.Errorf("AUTH LOGIN did not complete")
	}
	return username, nil
}

func (s *Session) promptBase64(prompt string) (string, error) {
	if err := s.writeLine(prompt); err != nil {
		return "", err
	}
	line, err := s.readLine()
	if err != nil {
		return "", err
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("invalid base64 response")
	}
	return string(decoded), nil
}
