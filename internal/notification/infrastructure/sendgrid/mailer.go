package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dmehra2102/bookwish-storefront/internal/notification/domain"
)

const (
	DefaultHost = "https://api.sendgrid.com"
	sendPath    = "/v3/mail/send"
	senderName  = "BookWish"
)

type Mailer struct {
	log    *slog.Logger
	apiKey string
	host   string
	from   string
}

func NewMailer(log *slog.Logger, apiKey, host, from string) (*Mailer, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	if from == "" {
		return nil, errors.New("from address is empty")
	}
	if host == "" {
		host = DefaultHost
	}
	return &Mailer{log: log, apiKey: apiKey, host: host, from: from}, nil
}

func (m *Mailer) Send(ctx context.Context, msg domain.Mail) error {
	if msg.To == "" {
		return errors.New("to address is empty")
	}
	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, m.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)

	req := sg.GetRequest(m.apiKey, sendPath, m.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(message)

	resp, err := sg.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		m.log.Error("sendgrid rejected mail", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("sendgrid send failed: status=%d", resp.StatusCode)
	}
	m.log.Debug("sendgrid mail accepted", "status", resp.StatusCode, "subject", msg.Subject)
	return nil
}
