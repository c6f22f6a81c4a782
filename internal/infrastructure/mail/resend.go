package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/99minutos/account-service/internal/core/ports"
)

// ResendSender delivers messages through the Resend API from a fixed sender
// address.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg ports.EmailMessage) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend %s: %w", msg.Template, err)
	}
	return nil
}
