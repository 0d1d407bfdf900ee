package mailer

import (
	"context"
	"errors"
	"log/slog"

	"gopkg.in/gomail.v2"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers msg over SMTP. gomail has no context support, so the dial
// runs on its own goroutine and Send returns when ctx ends; the abandoned
// dial finishes in the background.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("no recipient specified")
	}
	gm := buildMessage(m.from, msg)
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from string, msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	if msg.HTMLBody != "" {
		gm.SetBody("text/html", msg.HTMLBody)
		if msg.TextBody != "" {
			gm.AddAlternative("text/plain", msg.TextBody)
		}
	} else {
		gm.SetBody("text/plain", msg.TextBody)
	}
	return gm
}

// LogMailer logs instead of sending. Used when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email not sent (smtp disabled)", "to", msg.To, "subject", msg.Subject)
	return nil
}
