package notify

import (
	"context"
	"fmt"

	"github.com/linemk/print-orders/internal/domain/models"
	"github.com/resend/resend-go/v3"
)

// ResendNotifier отправляет письмо через API Resend
type ResendNotifier struct {
	client *resend.Client
	from   string
	to     string
}

func NewResendNotifier(client *resend.Client, from, to string) *ResendNotifier {
	return &ResendNotifier{client: client, from: from, to: to}
}

func (n *ResendNotifier) Notify(ctx context.Context, note models.OrderNotification) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: Subject(note),
		Text:    Body(note),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("notify.ResendNotifier.Notify: %w", err)
	}
	return nil
}
