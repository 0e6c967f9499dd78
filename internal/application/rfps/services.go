package rfps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/application"
	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	domain "github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

// Drafter turns free text or a chat transcript into an RFP draft.
type Drafter interface {
	GenerateRfp(ctx context.Context, description string) (ai.RfpDraft, error)
	GenerateRfpFromChat(ctx context.Context, history []ai.Turn) (ai.RfpDraft, error)
}

// Service implements the RFP lifecycle: draft, create, send, rank, accept, reject.
type Service struct {
	Repo     domain.Repository
	Vendors  vendors.Repository
	Notifier mail.Notifier
	Drafter  Drafter
	Clock    application.Clock
	Logger   *zap.Logger
}

//
// ==== USE CASES ====
//

// Generate drafts an RFP from a description. Nothing is persisted.
func (s *Service) Generate(ctx context.Context, description string) (ai.RfpDraft, error) {
	return s.Drafter.GenerateRfp(ctx, description)
}

// GenerateFromChat drafts an RFP from a chat transcript. Nothing is persisted.
func (s *Service) GenerateFromChat(ctx context.Context, history []ai.Turn) (ai.RfpDraft, error) {
	return s.Drafter.GenerateRfpFromChat(ctx, history)
}

// ItemInput is one requested line item as submitted by the operator.
type ItemInput struct {
	Name  string `json:"name"`
	Qty   Number `json:"qty"`
	Specs string `json:"specs"`
}

// Command untuk create RFP
type CreateCommand struct {
	Title        string
	Description  string
	Items        []ItemInput
	Budget       Number
	DeliveryDays Number
	PaymentTerms *string
	Warranty     *string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*domain.Rfp, error) {
	title := strings.TrimSpace(cmd.Title)
	description := strings.TrimSpace(cmd.Description)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", errs.ErrInvalidInput)
	}
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", errs.ErrInvalidInput)
	}

	items := make([]domain.Item, 0, len(cmd.Items))
	for i, in := range cmd.Items {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: items[%d].name is required", errs.ErrInvalidInput, i)
		}
		item := domain.Item{Name: name, Specs: strings.TrimSpace(in.Specs)}
		if in.Qty.Value != nil {
			if *in.Qty.Value < 0 {
				return nil, fmt.Errorf("%w: items[%d].qty must not be negative", errs.ErrInvalidInput, i)
			}
			item.Qty = *in.Qty.Value
		}
		items = append(items, item)
	}

	if b := cmd.Budget.Value; b != nil && *b < 0 {
		return nil, fmt.Errorf("%w: budget must not be negative", errs.ErrInvalidInput)
	}
	days, err := cmd.DeliveryDays.Int("deliveryDays")
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	r := &domain.Rfp{
		ID:           domain.ID(uuid.NewString()),
		Title:        title,
		Description:  description,
		Items:        items,
		Budget:       cmd.Budget.Value,
		DeliveryDays: days,
		PaymentTerms: blankToNil(cmd.PaymentTerms),
		Warranty:     blankToNil(cmd.Warranty),
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns RFPs newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]*domain.Summary, error) {
	st := domain.Status(status)
	if status != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q (allowed: Pending, Open, Closed)", errs.ErrInvalidInput, status)
	}
	return s.Repo.List(ctx, st)
}

// Get returns an RFP with its proposals and their vendors.
func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Detail, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	proposals, err := s.Repo.ListProposals(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposals == nil {
		proposals = []*domain.Proposal{}
	}
	return &domain.Detail{Rfp: *r, Proposals: proposals}, nil
}

// Send outcomes per vendor.
const (
	SendStatusSent   = "sent"
	SendStatusFailed = "failed"
)

type SendResult struct {
	VendorID   vendors.ID `json:"vendorId"`
	VendorName string     `json:"vendorName,omitempty"`
	Email      string     `json:"email,omitempty"`
	Status     string     `json:"status"`
	MessageID  string     `json:"messageId,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type SendSummary struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type SendReport struct {
	RfpID   domain.ID     `json:"rfpId"`
	Status  domain.Status `json:"status"`
	Summary SendSummary   `json:"summary"`
	Results []SendResult  `json:"results"`
}

// Send emails the RFP to each vendor independently. One vendor failing does
// not stop the others. A Pending RFP becomes Open once any email went out.
func (s *Service) Send(ctx context.Context, id domain.ID, vendorIDs []vendors.ID) (*SendReport, error) {
	ids := dedupe(vendorIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: vendorIds must contain at least one vendor", errs.ErrInvalidInput)
	}
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == domain.StatusClosed {
		return nil, fmt.Errorf("%w: rfp %s is closed", errs.ErrConflict, id)
	}

	report := &SendReport{RfpID: r.ID, Results: make([]SendResult, 0, len(ids))}
	for _, vid := range ids {
		res := s.sendOne(ctx, r, vid)
		if res.Status == SendStatusSent {
			report.Summary.Sent++
		} else {
			report.Summary.Failed++
		}
		report.Results = append(report.Results, res)
	}
	report.Summary.Total = len(report.Results)

	if report.Summary.Sent > 0 && r.Status == domain.StatusPending {
		if err := s.Repo.MarkOpen(ctx, r.ID, s.Clock.Now()); err != nil {
			s.Logger.Error("mark rfp open failed", zap.String("rfp_id", string(r.ID)), zap.Error(err))
		} else {
			r.Status = domain.StatusOpen
		}
	}
	report.Status = r.Status
	return report, nil
}

func (s *Service) sendOne(ctx context.Context, r *domain.Rfp, vid vendors.ID) SendResult {
	res := SendResult{VendorID: vid, Status: SendStatusFailed}
	v, err := s.Vendors.Get(ctx, vid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			res.Error = "vendor not found"
		} else {
			res.Error = err.Error()
		}
		return res
	}
	res.VendorName, res.Email = v.Name, v.Email

	receipt, err := s.Notifier.SendRfp(ctx, r, v)
	if err != nil {
		s.Logger.Warn("rfp email failed",
			zap.String("rfp_id", string(r.ID)),
			zap.String("vendor_id", string(vid)),
			zap.Error(err),
		)
		res.Error = err.Error()
		return res
	}
	res.Status = SendStatusSent
	res.MessageID = receipt.MessageID
	return res
}

// Proposals returns the ranked proposals of an RFP. Once the RFP is Closed
// only the accepted proposal is listed.
func (s *Service) Proposals(ctx context.Context, id domain.ID) ([]*domain.Proposal, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.Repo.ListProposals(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Proposal, 0, len(all))
	for _, p := range all {
		if r.Status == domain.StatusClosed && p.Status != domain.ProposalAccepted {
			continue
		}
		out = append(out, p)
	}
	Rank(out)
	return out, nil
}

// Rank orders proposals best first: score descending, then total price
// ascending with unknown prices last.
func Rank(ps []*domain.Proposal) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.TotalPrice == nil && b.TotalPrice == nil:
			return false
		case a.TotalPrice == nil:
			return false
		case b.TotalPrice == nil:
			return true
		}
		return *a.TotalPrice < *b.TotalPrice
	})
}

// Accept closes the RFP with the given proposal as winner. The winning vendor
// is notified after the transaction commits; that email never undoes the accept.
func (s *Service) Accept(ctx context.Context, id domain.ID, proposalID domain.ProposalID) (*domain.Detail, error) {
	r, p, err := s.owned(ctx, id, proposalID)
	if err != nil {
		return nil, err
	}
	if r.Status == domain.StatusClosed {
		return nil, fmt.Errorf("%w: rfp %s is already closed", errs.ErrConflict, id)
	}
	if p.Status != domain.ProposalPending {
		return nil, fmt.Errorf("%w: proposal %s is %s", errs.ErrConflict, proposalID, p.Status)
	}

	if err := s.Repo.AcceptProposal(ctx, id, proposalID, s.Clock.Now()); err != nil {
		return nil, err
	}
	s.Logger.Info("proposal accepted", zap.String("rfp_id", string(id)), zap.String("proposal_id", string(proposalID)))

	s.notifyAccepted(ctx, r, p)
	return s.Get(ctx, id)
}

func (s *Service) notifyAccepted(ctx context.Context, r *domain.Rfp, p *domain.Proposal) {
	v, err := s.Vendors.Get(ctx, p.VendorID)
	if err == nil {
		err = s.Notifier.SendProposalAccepted(ctx, r, v, p)
	}
	if err != nil {
		s.Logger.Warn("accepted email failed",
			zap.String("rfp_id", string(r.ID)),
			zap.String("proposal_id", string(p.ID)),
			zap.Error(err),
		)
	}
}

// Reject marks one proposal Rejected. The RFP status is not touched.
func (s *Service) Reject(ctx context.Context, id domain.ID, proposalID domain.ProposalID) (*domain.Proposal, error) {
	_, p, err := s.owned(ctx, id, proposalID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case domain.ProposalAccepted:
		return nil, fmt.Errorf("%w: proposal %s is already accepted", errs.ErrConflict, proposalID)
	case domain.ProposalRejected:
		return p, nil
	}

	now := s.Clock.Now()
	if err := s.Repo.RejectProposal(ctx, proposalID, now); err != nil {
		return nil, err
	}
	p.Status = domain.ProposalRejected
	p.UpdatedAt = now
	return p, nil
}

// owned loads an RFP and one of its proposals.
func (s *Service) owned(ctx context.Context, id domain.ID, proposalID domain.ProposalID) (*domain.Rfp, *domain.Proposal, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if p.RfpID != id {
		return nil, nil, fmt.Errorf("%w: proposal %s does not belong to rfp %s", errs.ErrNotFound, proposalID, id)
	}
	return r, p, nil
}

func dedupe(ids []vendors.ID) []vendors.ID {
	seen := make(map[vendors.ID]bool, len(ids))
	out := make([]vendors.ID, 0, len(ids))
	for _, id := range ids {
		id = vendors.ID(strings.TrimSpace(string(id)))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
