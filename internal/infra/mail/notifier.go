// Package mail wires the email templates to an outbound transport.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
	"github.com/bryanwahyu/rfp-manager/internal/infra/mail/templates"
)

// Notifier implements mail.Notifier on top of a mail.Sender.
type Notifier struct {
	Sender mail.Sender
	// ReplyTo is the inbound address vendor replies should reach.
	ReplyTo string
}

func (n *Notifier) SendRfp(ctx context.Context, r *rfps.Rfp, v *vendors.Vendor) (mail.Receipt, error) {
	msg, err := templates.Rfp(r, v)
	if err != nil {
		return mail.Receipt{}, err
	}
	msg.ReplyTo = n.ReplyTo
	return n.Sender.Send(ctx, msg)
}

func (n *Notifier) SendProposalReceived(ctx context.Context, r *rfps.Rfp, v *vendors.Vendor, p *rfps.Proposal) error {
	msg, err := templates.ProposalReceived(r, v, p)
	if err != nil {
		return err
	}
	_, err = n.Sender.Send(ctx, msg)
	return err
}

func (n *Notifier) SendProposalAccepted(ctx context.Context, r *rfps.Rfp, v *vendors.Vendor, p *rfps.Proposal) error {
	msg, err := templates.ProposalAccepted(r, v, p)
	if err != nil {
		return err
	}
	_, err = n.Sender.Send(ctx, msg)
	return err
}

// LogSender writes messages to the log instead of sending them. Used when no
// SendGrid key is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	if msg.To == "" {
		return mail.Receipt{}, fmt.Errorf("recipient is empty")
	}
	s.Logger.Info("email not sent, transport disabled",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("reply_to", msg.ReplyTo),
	)
	return mail.Receipt{MessageID: "log", StatusCode: 202}, nil
}
