package sendgrid

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
)

// ErrRejected is returned when SendGrid answers with a non-2xx status.
var ErrRejected = errors.New("sendgrid rejected message")

type Sender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSender(apiKey, from, fromName string) *Sender {
	return &Sender{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

// Build converts a message into the SendGrid v3 payload.
func (s *Sender) Build(msg mail.Message) *sgmail.SGMailV3 {
	m := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)
	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}
	return m
}

func (s *Sender) Send(ctx context.Context, msg mail.Message) (mail.Receipt, error) {
	if msg.To == "" {
		return mail.Receipt{}, errors.New("recipient is empty")
	}
	resp, err := s.client.SendWithContext(ctx, s.Build(msg))
	if err != nil {
		return mail.Receipt{}, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mail.Receipt{StatusCode: resp.StatusCode}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, resp.Body)
	}
	r := mail.Receipt{StatusCode: resp.StatusCode}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		r.MessageID = ids[0]
	}
	return r, nil
}
