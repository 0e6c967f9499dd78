package testutils

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ingesterrors"
	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

// Vendors is an in-memory vendors.Repository keeping insertion order.
type Vendors struct {
	mu    sync.Mutex
	order []*vendors.Vendor
}

func (m *Vendors) Create(_ context.Context, v *vendors.Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.order {
		if x.ID == v.ID {
			return fmt.Errorf("%w: vendor %s exists", errs.ErrConflict, v.ID)
		}
	}
	cp := *v
	m.order = append(m.order, &cp)
	return nil
}

func (m *Vendors) Get(_ context.Context, id vendors.ID) (*vendors.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.order {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: vendor %s", errs.ErrNotFound, id)
}

func (m *Vendors) List(_ context.Context) ([]*vendors.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*vendors.Vendor, 0, len(m.order))
	for _, v := range m.order {
		cp := *v
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Vendors) FindByEmail(_ context.Context, addr string) (*vendors.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr = strings.ToLower(addr)
	for _, v := range m.order {
		if strings.Contains(strings.ToLower(v.Email), addr) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Vendors) Delete(_ context.Context, id vendors.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.order {
		if v.ID == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: vendor %s", errs.ErrNotFound, id)
}

// Rfps is an in-memory rfps.Repository. FailAccept forces AcceptProposal to
// fail without writing anything.
type Rfps struct {
	mu        sync.Mutex
	Vendors   *Vendors
	rfps      []*rfps.Rfp
	proposals []*rfps.Proposal

	FailAccept error
	FailCreate error
}

func (m *Rfps) Create(_ context.Context, r *rfps.Rfp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rfps = append(m.rfps, &cp)
	return nil
}

func (m *Rfps) Get(_ context.Context, id rfps.ID) (*rfps.Rfp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.rfp(id); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: rfp %s", errs.ErrNotFound, id)
}

func (m *Rfps) rfp(id rfps.ID) *rfps.Rfp {
	for _, r := range m.rfps {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *Rfps) List(_ context.Context, status rfps.Status) ([]*rfps.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*rfps.Summary
	for i := len(m.rfps) - 1; i >= 0; i-- {
		r := m.rfps[i]
		if status != "" && r.Status != status {
			continue
		}
		n := 0
		for _, p := range m.proposals {
			if p.RfpID == r.ID {
				n++
			}
		}
		out = append(out, &rfps.Summary{Rfp: *r, ProposalCount: n})
	}
	return out, nil
}

func (m *Rfps) MarkOpen(_ context.Context, id rfps.ID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rfp(id)
	if r == nil {
		return fmt.Errorf("%w: rfp %s", errs.ErrNotFound, id)
	}
	if r.Status == rfps.StatusPending {
		r.Status = rfps.StatusOpen
		r.UpdatedAt = at
	}
	return nil
}

func (m *Rfps) CreateProposal(_ context.Context, p *rfps.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate != nil {
		return m.FailCreate
	}
	cp := *p
	cp.Vendor = nil
	m.proposals = append(m.proposals, &cp)
	return nil
}

func (m *Rfps) GetProposal(_ context.Context, id rfps.ProposalID) (*rfps.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.proposal(id); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: proposal %s", errs.ErrNotFound, id)
}

func (m *Rfps) proposal(id rfps.ProposalID) *rfps.Proposal {
	for _, p := range m.proposals {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Rfps) ListProposals(ctx context.Context, rfpID rfps.ID) ([]*rfps.Proposal, error) {
	m.mu.Lock()
	var out []*rfps.Proposal
	for _, p := range m.proposals {
		if p.RfpID == rfpID {
			cp := *p
			out = append(out, &cp)
		}
	}
	m.mu.Unlock()
	if m.Vendors != nil {
		for _, p := range out {
			if v, err := m.Vendors.Get(ctx, p.VendorID); err == nil {
				p.Vendor = v
			}
		}
	}
	return out, nil
}

func (m *Rfps) UpdateRating(_ context.Context, id rfps.ProposalID, score float64, analysis string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.proposal(id)
	if p == nil {
		return fmt.Errorf("%w: proposal %s", errs.ErrNotFound, id)
	}
	p.Score, p.AIAnalysis, p.UpdatedAt = score, analysis, at
	return nil
}

func (m *Rfps) AcceptProposal(_ context.Context, rfpID rfps.ID, proposalID rfps.ProposalID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAccept != nil {
		return m.FailAccept
	}
	r := m.rfp(rfpID)
	if r == nil {
		return fmt.Errorf("%w: rfp %s", errs.ErrNotFound, rfpID)
	}
	if r.Status == rfps.StatusClosed {
		return fmt.Errorf("%w: rfp %s is closed", errs.ErrConflict, rfpID)
	}
	win := m.proposal(proposalID)
	if win == nil || win.RfpID != rfpID {
		return fmt.Errorf("%w: proposal %s", errs.ErrNotFound, proposalID)
	}
	r.Status, r.UpdatedAt = rfps.StatusClosed, at
	for _, p := range m.proposals {
		if p.RfpID != rfpID {
			continue
		}
		if p.ID == proposalID {
			p.Status = rfps.ProposalAccepted
		} else {
			p.Status = rfps.ProposalRejected
		}
		p.UpdatedAt = at
	}
	return nil
}

func (m *Rfps) RejectProposal(_ context.Context, id rfps.ProposalID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.proposal(id)
	if p == nil {
		return fmt.Errorf("%w: proposal %s", errs.ErrNotFound, id)
	}
	p.Status, p.UpdatedAt = rfps.ProposalRejected, at
	return nil
}

// Notifier records every email it is asked to send.
type Notifier struct {
	mu       sync.Mutex
	Sent     []string
	Received []rfps.ProposalID
	Accepted []rfps.ProposalID

	// FailFor makes SendRfp fail for the listed vendor ids.
	FailFor      map[vendors.ID]error
	FailReceived error
	FailAccepted error
}

func (n *Notifier) SendRfp(_ context.Context, r *rfps.Rfp, v *vendors.Vendor) (mail.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.FailFor[v.ID]; err != nil {
		return mail.Receipt{}, err
	}
	n.Sent = append(n.Sent, string(v.ID))
	return mail.Receipt{MessageID: "msg-" + string(v.ID), StatusCode: 202}, nil
}

func (n *Notifier) SendProposalReceived(_ context.Context, _ *rfps.Rfp, _ *vendors.Vendor, p *rfps.Proposal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailReceived != nil {
		return n.FailReceived
	}
	n.Received = append(n.Received, p.ID)
	return nil
}

func (n *Notifier) SendProposalAccepted(_ context.Context, _ *rfps.Rfp, _ *vendors.Vendor, p *rfps.Proposal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailAccepted != nil {
		return n.FailAccepted
	}
	n.Accepted = append(n.Accepted, p.ID)
	return nil
}

// IngestErrors is an in-memory ingesterrors.Repository.
type IngestErrors struct {
	mu    sync.Mutex
	Saved []*ingesterrors.IngestError
}

func (m *IngestErrors) Save(_ context.Context, e *ingesterrors.IngestError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Saved = append(m.Saved, &cp)
	return nil
}

func (m *IngestErrors) Latest(_ context.Context, limit int) ([]*ingesterrors.IngestError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ingesterrors.IngestError, 0, limit)
	for i := len(m.Saved) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Saved[i])
	}
	return out, nil
}

// Store is an in-memory mail.AttachmentStore.
type Store struct {
	mu   sync.Mutex
	Keys []string
	Fail error
}

func (s *Store) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return "", s.Fail
	}
	s.Keys = append(s.Keys, key)
	return "memory://" + key, nil
}
