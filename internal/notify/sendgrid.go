package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGrid struct {
	client  *sendgrid.Client
	from    *mail.Email
	sandbox bool
}

func NewSendGrid(apiKey, fromEmail, fromName string, sandbox bool) *SendGrid {
	return &SendGrid{
		client:  sendgrid.NewSendClient(apiKey),
		from:    mail.NewEmail(fromName, fromEmail),
		sandbox: sandbox,
	}
}

func (s *SendGrid) Notify(ctx context.Context, m Message) error {
	if m.ToEmail == "" {
		return ErrNoRecipient
	}

	to := mail.NewEmail(m.ToName, m.ToEmail)
	msg := mail.NewSingleEmail(s.from, m.Subject, to, m.Text, toHTML(m.Text))

	if s.sandbox {
		msg.SetMailSettings(mail.NewMailSettings().SetSandboxMode(mail.NewSetting(true)))
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

func toHTML(text string) string {
	lines := strings.Split(html.EscapeString(text), "\n")

	return "<p>" + strings.Join(lines, "<br>") + "</p>"
}
