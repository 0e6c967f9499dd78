package rfps

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, r *Rfp) error
	Get(ctx context.Context, id ID) (*Rfp, error)
	// List returns RFPs newest first. An empty status means all.
	List(ctx context.Context, status Status) ([]*Summary, error)
	// MarkOpen moves a Pending RFP to Open. Open and Closed RFPs are left untouched.
	MarkOpen(ctx context.Context, id ID, at time.Time) error

	CreateProposal(ctx context.Context, p *Proposal) error
	GetProposal(ctx context.Context, id ProposalID) (*Proposal, error)
	// ListProposals returns the proposals of an RFP in creation order, vendor joined.
	ListProposals(ctx context.Context, rfpID ID) ([]*Proposal, error)
	UpdateRating(ctx context.Context, id ProposalID, score float64, analysis string, at time.Time) error

	// AcceptProposal closes the RFP, accepts the proposal and rejects its
	// siblings in one transaction. Nothing is written when any step fails.
	AcceptProposal(ctx context.Context, rfpID ID, proposalID ProposalID, at time.Time) error
	RejectProposal(ctx context.Context, id ProposalID, at time.Time) error
}
