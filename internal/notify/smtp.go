package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/linemk/print-orders/internal/domain/models"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// Secure - TLS сразу при подключении (порт 465); иначе STARTTLS, если сервер его предлагает
	Secure bool
	From   string
	To     string
}

type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) Notify(ctx context.Context, note models.OrderNotification) error {
	const op = "notify.SMTPNotifier.Notify"

	msg, err := newMessage(n.cfg.From, n.cfg.To, note, time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := mail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%s: client: %w", op, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%s: send: %w", op, err)
	}
	return nil
}

func (n *SMTPNotifier) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(n.cfg.Port)}
	if n.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if n.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.User),
			mail.WithPassword(n.cfg.Password),
		)
	}
	return opts
}

func newMessage(from, to string, note models.OrderNotification, now time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	msg.Subject(Subject(note))
	msg.SetDateWithValue(now)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, Body(note))
	return msg, nil
}
