package mail

import (
	"context"

	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

// Sender port (interface untuk transport email keluar)
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Notifier renders and sends the workflow emails.
type Notifier interface {
	SendRfp(ctx context.Context, rfp *rfps.Rfp, vendor *vendors.Vendor) (Receipt, error)
	SendProposalReceived(ctx context.Context, rfp *rfps.Rfp, vendor *vendors.Vendor, p *rfps.Proposal) error
	SendProposalAccepted(ctx context.Context, rfp *rfps.Rfp, vendor *vendors.Vendor, p *rfps.Proposal) error
}

// AttachmentStore port (interface untuk penyimpanan lampiran)
type AttachmentStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
}
