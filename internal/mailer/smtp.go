package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// SMTPSender delivers mail through a classic SMTP relay. When the
// configured port fails it walks a fallback chain (587 STARTTLS, then
// 465 implicit TLS) because providers differ on which they expose.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates an SMTP transport from config.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message, trying each port strategy in order.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	ports := []int{s.cfg.Port}
	for _, p := range []int{587, 465} {
		if p != s.cfg.Port {
			ports = append(ports, p)
		}
	}

	var lastErr error
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if port == 465 {
			err = s.sendImplicitTLS(port, msg)
		} else {
			err = s.sendSTARTTLS(port, msg)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("smtp attempt failed", "host", s.cfg.Host, "port", port, "error", err.Error())
	}
	return fmt.Errorf("all SMTP attempts failed: %w", lastErr)
}

func (s *SMTPSender) addr(port int) string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
}

func (s *SMTPSender) auth() smtp.Auth {
	return smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
}

func (s *SMTPSender) sendSTARTTLS(port int, msg Message) error {
	c, err := smtp.Dial(s.addr(port))
	if err != nil {
		return fmt.Errorf("dialing: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	return s.transmit(c, msg)
}

func (s *SMTPSender) sendImplicitTLS(port int, msg Message) error {
	conn, err := tls.Dial("tcp", s.addr(port), &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()
	return s.transmit(c, msg)
}

func (s *SMTPSender) transmit(c *smtp.Client, msg Message) error {
	if err := c.Auth(s.auth()); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(buildMIME(msg, from))); err != nil {
		w.Close()
		return fmt.Errorf("writing body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing body: %w", err)
	}
	return c.Quit()
}

func buildMIME(msg Message, from string) string {
	var b strings.Builder
	fromName := msg.FromName
	if fromName == "" {
		fromName = from
	}
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	return b.String()
}
