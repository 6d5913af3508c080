// Package mail builds and sends transactional email.
//
//	err := mail.To(user.Email).
//	    Subject("Order confirmed").
//	    Render(orderPlacedTmpl, data).
//	    Send(ctx)
//
// Messages go through the package Sender: SMTP when MAIL_HOST is set, a
// logging sender otherwise.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"sync"

	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
)

// ------------------- Config -------------------

// SMTP holds connection settings.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPFromConfig reads MAIL_* settings.
func SMTPFromConfig() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", ""),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "orders@kisanmart.in"),
		FromName: config.Get("MAIL_FROM_NAME", "KisanMart"),
	}
}

// ------------------- Sender -------------------

// Sender delivers a built message.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

var (
	senderMu sync.RWMutex
	sender   Sender
)

// SetSender replaces the package sender and returns the previous one.
func SetSender(s Sender) Sender {
	senderMu.Lock()
	defer senderMu.Unlock()
	prev := sender
	sender = s
	return prev
}

func currentSender() Sender {
	senderMu.RLock()
	s := sender
	senderMu.RUnlock()
	if s != nil {
		return s
	}

	cfg := SMTPFromConfig()
	if cfg.Host == "" {
		return LogSender{}
	}
	return SMTPSender{Config: cfg}
}

// ------------------- Message -------------------

// Message is a fluent builder for one email.
type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
	err     error
}

// To starts a message for the given recipients.
func To(addresses ...string) *Message {
	return &Message{to: addresses, isHTML: true}
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// HTML sets an HTML body.
func (m *Message) HTML(body string) *Message {
	m.body = body
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(body string) *Message {
	m.body = body
	m.isHTML = false
	return m
}

// Render executes tmpl with data as the HTML body. A render error is
// returned from Send.
func (m *Message) Render(tmpl *template.Template, data any) *Message {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
		return m
	}
	return m.HTML(buf.String())
}

func (m *Message) Recipients() []string { return append([]string(nil), m.to...) }
func (m *Message) SubjectLine() string  { return m.subject }
func (m *Message) Body() string         { return m.body }

// Send delivers the message with the package Sender.
func (m *Message) Send(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	if len(m.to) == 0 {
		return fmt.Errorf("mail: no recipients")
	}
	return currentSender().Send(ctx, m)
}

// Raw returns the RFC 5322 message.
func (m *Message) Raw(from string) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	b.WriteString("Subject: " + m.subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}

// ------------------- Senders -------------------

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m *Message) error {
	logger.WithCtx(ctx).Info("mail: not sent, MAIL_HOST unset",
		"to", strings.Join(m.to, ","), "subject", m.subject)
	return nil
}

// SMTPSender delivers over SMTP: implicit TLS on port 465, STARTTLS
// otherwise.
type SMTPSender struct {
	Config SMTP
}

func (s SMTPSender) Send(ctx context.Context, m *Message) error {
	cfg := s.Config
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if cfg.Port == "465" {
		conn = tls.Client(conn, &tls.Config{ServerName: cfg.Host})
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer client.Close()

	if cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	for _, rcpt := range m.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := w.Write(m.Raw(from)); err != nil {
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close data: %w", err)
	}
	return client.Quit()
}

// Outbox records messages instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	sent []*Message
}

func (o *Outbox) Send(_ context.Context, m *Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

// Sent returns the recorded messages.
func (o *Outbox) Sent() []*Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Message(nil), o.sent...)
}
