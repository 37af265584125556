// Package mailer sends email with attachments over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
)

// Attachment is a file sent alongside the message body.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// SMTPMailer delivers messages through one SMTP relay. STARTTLS is used
// whenever the server offers it; PLAIN auth when a username is configured.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

// Send delivers msg. The whole SMTP exchange is bounded by ctx.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("send mail: no recipients")
	}
	out, err := m.buildMessage(msg)
	if err != nil {
		return fmt.Errorf("build mail: %w", err)
	}

	client, err := mail.NewClient(m.host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client %s: %w", m.host, err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", m.host, m.port, err)
	}

	m.logger.Info("mail sent",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	return opts
}

// buildMessage renders msg as a text/plain body followed by its attachments.
func (m *SMTPMailer) buildMessage(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("from %q: %w", m.from, err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		var opts []mail.FileOption
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := out.AttachReader(a.Filename, bytes.NewReader(a.Data), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return out, nil
}
