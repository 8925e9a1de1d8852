package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

type Email struct {
	Subject      string
	Body         string
	From         string
	To           []string
	Template     string
	TemplateVars map[string]any
}

type Mailer interface {
	SendMail(e *Email) error
	SendPasswordReset(to, resetURL string) error
}

type Mailgun struct {
	domain  string
	apiKey  string
	apiBase string
}

func NewMailer(domain, apiKey, apiBase string) *Mailgun {
	return &Mailgun{
		domain:  domain,
		apiKey:  apiKey,
		apiBase: apiBase,
	}
}

func (m *Mailgun) send(e *Email, timeout time.Duration) error {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}

	message := mailgun.NewMessage(e.From, e.Subject, e.Body, e.To...)
	if e.Template != "" {
		message.SetTemplate(e.Template)
		for k, v := range e.TemplateVars {
			message.AddTemplateVariable(k, v)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	return err
}

func (m *Mailgun) SendMail(e *Email) error {
	return m.send(e, 5*time.Second)
}

// SendPasswordReset delivers the reset link. The cleartext token inside the
// URL is never persisted, so a lost mail means requesting a new reset.
func (m *Mailgun) SendPasswordReset(to, resetURL string) error {
	message := Email{
		Subject:  "Password reset",
		From:     fmt.Sprintf("no-reply@%s", m.domain),
		To:       []string{to},
		Template: "reset-password",
		TemplateVars: map[string]any{
			"resetUrl": resetURL,
		},
	}

	return m.send(&message, 10*time.Second)
}
