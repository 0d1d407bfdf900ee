package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/mailer"
	"github.com/aidashboard/dashboard-auth/internal/observability"
)

//go:embed templates/*.html
var emailTemplates embed.FS

var parsedTemplates = template.Must(template.ParseFS(emailTemplates, "templates/*.html"))

type EmailTemplate string

const (
	TemplateVerification  EmailTemplate = "verification"
	TemplatePasswordReset EmailTemplate = "password_reset"
)

var emailSubjects = map[EmailTemplate]string{
	TemplateVerification:  "Verify Email",
	TemplatePasswordReset: "Reset Password",
}

// EmailDispatcher sends templated mail best-effort: Dispatch returns at
// once, and delivery failures are logged and counted, never returned.
type EmailDispatcher struct {
	sender  mailer.Sender
	logger  *slog.Logger
	timeout time.Duration
	otpTTL  time.Duration
	wg      sync.WaitGroup
}

func NewEmailDispatcher(sender mailer.Sender, logger *slog.Logger, timeout, otpTTL time.Duration) *EmailDispatcher {
	return &EmailDispatcher{sender: sender, logger: logger, timeout: timeout, otpTTL: otpTTL}
}

func renderEmail(tpl EmailTemplate, data any) (string, error) {
	var buf bytes.Buffer
	if err := parsedTemplates.ExecuteTemplate(&buf, string(tpl)+".html", data); err != nil {
		return "", fmt.Errorf("render %s email: %w", tpl, err)
	}
	return buf.String(), nil
}

func (d *EmailDispatcher) SendVerificationCode(ctx context.Context, to, code string) {
	d.dispatch(ctx, TemplateVerification, to, code)
}

func (d *EmailDispatcher) SendPasswordResetCode(ctx context.Context, to, code string) {
	d.dispatch(ctx, TemplatePasswordReset, to, code)
}

func (d *EmailDispatcher) dispatch(ctx context.Context, tpl EmailTemplate, to, code string) {
	body, err := renderEmail(tpl, struct {
		Code      string
		ExpiresIn string
	}{Code: code, ExpiresIn: humanDuration(d.otpTTL)})
	if err != nil {
		d.logger.ErrorContext(ctx, "email render failed", "template", tpl, "error", err)
		observability.RecordEmailDispatch(ctx, string(tpl), "render_error")
		return
	}
	msg := mailer.Message{To: to, Subject: emailSubjects[tpl], HTMLBody: body}

	// The send outlives the request, so it gets a fresh deadline while
	// keeping the request's values for logs and traces.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.logger.WarnContext(sendCtx, "email send failed", "template", tpl, "error", err)
			observability.RecordEmailDispatch(sendCtx, string(tpl), "failed")
			return
		}
		observability.RecordEmailDispatch(sendCtx, string(tpl), "sent")
	}()
}

// Wait blocks until in-flight sends finish or ctx ends.
func (d *EmailDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
