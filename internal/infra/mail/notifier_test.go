package mail_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
	inframail "github.com/bryanwahyu/rfp-manager/internal/infra/mail"
)

type captureSender struct{ sent []mail.Message }

func (c *captureSender) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	c.sent = append(c.sent, msg)
	return mail.Receipt{MessageID: "m-1", StatusCode: 202}, nil
}

func TestSendRfpUsesInboundReplyTo(t *testing.T) {
	sender := &captureSender{}
	n := &inframail.Notifier{Sender: sender, ReplyTo: "proposals@inbound.buyer.test"}

	r := &rfps.Rfp{ID: "abc123", Title: "Laptops"}
	v := &vendors.Vendor{Name: "Acme", Email: "sales@acme.test"}
	receipt, err := n.SendRfp(context.Background(), r, v)
	require.NoError(t, err)
	require.Equal(t, "m-1", receipt.MessageID)

	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0].Subject, "RFP-abc123")
	require.Equal(t, "proposals@inbound.buyer.test", sender.sent[0].ReplyTo)
	require.Equal(t, "sales@acme.test", sender.sent[0].To)
}

func TestConfirmationHasNoReplyTo(t *testing.T) {
	sender := &captureSender{}
	n := &inframail.Notifier{Sender: sender, ReplyTo: "proposals@inbound.buyer.test"}

	err := n.SendProposalReceived(context.Background(), &rfps.Rfp{ID: "r1", Title: "Chairs"}, &vendors.Vendor{Email: "a@b.test"}, &rfps.Proposal{})
	require.NoError(t, err)
	require.Equal(t, "Proposal Received - Chairs", sender.sent[0].Subject)
	require.Empty(t, sender.sent[0].ReplyTo)
}

func TestLogSender(t *testing.T) {
	s := inframail.LogSender{Logger: zap.NewNop()}
	_, err := s.Send(context.Background(), mail.Message{To: "x@y.test", Subject: "hi"})
	require.NoError(t, err)
}
