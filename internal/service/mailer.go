package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

var ErrMailerDisabled = errors.New("mailer: no api key configured")

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer returns a mailer that always fails with ErrMailerDisabled when apiKey is empty,
// so callers fall through to their no-email path.
func NewResendMailer(apiKey, from string) *ResendMailer {
	m := &ResendMailer{from: from}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	const op = "service.ResendMailer.Send"

	if m.client == nil {
		return ErrMailerDisabled
	}
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
