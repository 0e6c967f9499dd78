package sqlstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/domain"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ingesterrors"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
	"github.com/bryanwahyu/rfp-manager/internal/infra/db/sqlstore"
)

var base = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlstore.Connect(ctx, sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "rfp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db, zap.NewNop()))
	return db
}

type stores struct {
	vendors *sqlstore.VendorRepository
	rfps    *sqlstore.RfpRepository
	errors  *sqlstore.IngestErrorRepository
}

func newStores(t *testing.T) stores {
	db := openDB(t)
	return stores{
		vendors: sqlstore.NewVendorRepository(db),
		rfps:    sqlstore.NewRfpRepository(db),
		errors:  sqlstore.NewIngestErrorRepository(db),
	}
}

func (s stores) vendor(t *testing.T, id, name, email string, at time.Time) {
	t.Helper()
	require.NoError(t, s.vendors.Create(context.Background(), &vendors.Vendor{ID: vendors.ID(id), Name: name, Email: email, Category: "IT", CreatedAt: at}))
}

func (s stores) rfp(t *testing.T, id string, status rfps.Status, at time.Time) {
	t.Helper()
	budget, days, terms := 50000.0, 30, "Net 30"
	require.NoError(t, s.rfps.Create(context.Background(), &rfps.Rfp{
		ID: rfps.ID(id), Title: "Laptops " + id, Description: "20 laptops",
		Items:  []rfps.Item{{Name: "Laptop", Qty: 20, Specs: "16GB RAM"}},
		Budget: &budget, DeliveryDays: &days, PaymentTerms: &terms,
		Status: status, CreatedAt: at, UpdatedAt: at,
	}))
}

func (s stores) proposal(t *testing.T, id, rfpID, vendorID string, at time.Time) {
	t.Helper()
	total := 48000.0
	require.NoError(t, s.rfps.CreateProposal(context.Background(), &rfps.Proposal{
		ID: rfps.ProposalID(id), RfpID: rfps.ID(rfpID), VendorID: vendors.ID(vendorID),
		RawEmail: "quote", ParsedData: json.RawMessage(`{"totalPrice":48000}`), TotalPrice: &total,
		Status: rfps.ProposalPending, AIAnalysis: rfps.PendingAnalysis, CreatedAt: at, UpdatedAt: at,
	}))
}

func TestRfpRoundTrip(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.rfp(t, "r1", rfps.StatusPending, base)

	got, err := s.rfps.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "Laptops r1", got.Title)
	require.Equal(t, []rfps.Item{{Name: "Laptop", Qty: 20, Specs: "16GB RAM"}}, got.Items)
	require.Equal(t, 50000.0, *got.Budget)
	require.Equal(t, 30, *got.DeliveryDays)
	require.Equal(t, "Net 30", *got.PaymentTerms)
	require.Nil(t, got.Warranty)
	require.True(t, base.Equal(got.CreatedAt))

	_, err = s.rfps.Get(ctx, "missing")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListFiltersAndCounts(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.vendor(t, "v1", "Acme", "sales@acme.com", base)
	s.rfp(t, "old", rfps.StatusOpen, base)
	s.rfp(t, "new", rfps.StatusPending, base.Add(time.Hour))
	s.proposal(t, "p1", "old", "v1", base)
	s.proposal(t, "p2", "old", "v1", base.Add(time.Minute))

	all, err := s.rfps.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, rfps.ID("new"), all[0].ID)
	require.Equal(t, 0, all[0].ProposalCount)
	require.Equal(t, 2, all[1].ProposalCount)

	open, err := s.rfps.List(ctx, rfps.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, rfps.ID("old"), open[0].ID)
}

func TestMarkOpenOnlyFromPending(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.rfp(t, "r1", rfps.StatusPending, base)
	s.rfp(t, "r2", rfps.StatusClosed, base)

	require.NoError(t, s.rfps.MarkOpen(ctx, "r1", base.Add(time.Hour)))
	require.NoError(t, s.rfps.MarkOpen(ctx, "r2", base.Add(time.Hour)))

	r1, _ := s.rfps.Get(ctx, "r1")
	r2, _ := s.rfps.Get(ctx, "r2")
	require.Equal(t, rfps.StatusOpen, r1.Status)
	require.Equal(t, rfps.StatusClosed, r2.Status)
}

func TestProposalsJoinVendorAndRating(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.vendor(t, "v1", "Acme", "sales@acme.com", base)
	s.rfp(t, "r1", rfps.StatusOpen, base)
	s.proposal(t, "p1", "r1", "v1", base)

	require.NoError(t, s.rfps.UpdateRating(ctx, "p1", 82, "Within budget", base.Add(time.Minute)))
	require.True(t, errors.Is(s.rfps.UpdateRating(ctx, "nope", 1, "", base), domain.ErrNotFound))

	ps, err := s.rfps.ListProposals(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	require.Equal(t, 82.0, ps[0].Score)
	require.Equal(t, "Within budget", ps[0].AIAnalysis)
	require.Equal(t, "Acme", ps[0].Vendor.Name)
	require.JSONEq(t, `{"totalPrice":48000}`, string(ps[0].ParsedData))
	require.Equal(t, 48000.0, *ps[0].TotalPrice)
}

func TestAcceptProposalIsAtomic(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.vendor(t, "v1", "Acme", "sales@acme.com", base)
	s.rfp(t, "r1", rfps.StatusOpen, base)
	s.rfp(t, "r2", rfps.StatusOpen, base)
	s.proposal(t, "p1", "r1", "v1", base)
	s.proposal(t, "p2", "r1", "v1", base.Add(time.Minute))
	s.proposal(t, "p3", "r1", "v1", base.Add(2*time.Minute))
	s.proposal(t, "other", "r2", "v1", base)

	// a proposal from another RFP aborts the whole transaction
	err := s.rfps.AcceptProposal(ctx, "r1", "other", base.Add(time.Hour))
	require.True(t, errors.Is(err, domain.ErrNotFound))
	r1, _ := s.rfps.Get(ctx, "r1")
	require.Equal(t, rfps.StatusOpen, r1.Status)
	ps, _ := s.rfps.ListProposals(ctx, "r1")
	for _, p := range ps {
		require.Equal(t, rfps.ProposalPending, p.Status)
	}

	require.NoError(t, s.rfps.AcceptProposal(ctx, "r1", "p2", base.Add(time.Hour)))
	r1, _ = s.rfps.Get(ctx, "r1")
	require.Equal(t, rfps.StatusClosed, r1.Status)

	ps, _ = s.rfps.ListProposals(ctx, "r1")
	status := map[rfps.ProposalID]rfps.ProposalStatus{}
	for _, p := range ps {
		status[p.ID] = p.Status
	}
	require.Equal(t, map[rfps.ProposalID]rfps.ProposalStatus{
		"p1": rfps.ProposalRejected,
		"p2": rfps.ProposalAccepted,
		"p3": rfps.ProposalRejected,
	}, status)

	other, _ := s.rfps.GetProposal(ctx, "other")
	require.Equal(t, rfps.ProposalPending, other.Status)

	err = s.rfps.AcceptProposal(ctx, "r1", "p1", base.Add(2*time.Hour))
	require.True(t, errors.Is(err, domain.ErrConflict))
	p2, _ := s.rfps.GetProposal(ctx, "p2")
	require.Equal(t, rfps.ProposalAccepted, p2.Status)
}

func TestRejectProposal(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.vendor(t, "v1", "Acme", "sales@acme.com", base)
	s.rfp(t, "r1", rfps.StatusOpen, base)
	s.proposal(t, "p1", "r1", "v1", base)

	require.NoError(t, s.rfps.RejectProposal(ctx, "p1", base.Add(time.Hour)))
	p, _ := s.rfps.GetProposal(ctx, "p1")
	require.Equal(t, rfps.ProposalRejected, p.Status)
	require.True(t, errors.Is(s.rfps.RejectProposal(ctx, "nope", base), domain.ErrNotFound))
}

func TestFindByEmail(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.vendor(t, "v2", "Acme AU", "sales@acme.com.au", base.Add(time.Minute))
	s.vendor(t, "v1", "Acme", "Sales@Acme.com", base)

	v, err := s.vendors.FindByEmail(ctx, "sales@ACME.com")
	require.NoError(t, err)
	require.Equal(t, vendors.ID("v1"), v.ID)

	v, err = s.vendors.FindByEmail(ctx, "nobody@else.io")
	require.NoError(t, err)
	require.Nil(t, v)

	list, err := s.vendors.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "Acme", list[0].Name)
	require.Equal(t, "Acme AU", list[1].Name)
}

func TestDeleteVendor(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	s.vendor(t, "v1", "Acme", "sales@acme.com", base)
	s.vendor(t, "v2", "Beta", "hi@beta.io", base)
	s.rfp(t, "r1", rfps.StatusOpen, base)
	s.proposal(t, "p1", "r1", "v1", base)

	require.True(t, errors.Is(s.vendors.Delete(ctx, "v1"), domain.ErrConflict))
	require.NoError(t, s.vendors.Delete(ctx, "v2"))
	require.True(t, errors.Is(s.vendors.Delete(ctx, "v2"), domain.ErrNotFound))
}

func TestIngestErrors(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	require.NoError(t, s.errors.Save(ctx, &ingesterrors.IngestError{Phase: ingesterrors.PhaseRating, Message: "quota", DetailsJSON: "not json", CreatedAt: base}))
	require.NoError(t, s.errors.Save(ctx, &ingesterrors.IngestError{Phase: ingesterrors.PhaseExtract, RfpID: "r1", Message: "bad", CreatedAt: base.Add(time.Minute)}))

	list, err := s.errors.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ingesterrors.PhaseExtract, list[0].Phase)
	require.Equal(t, "{}", list[0].DetailsJSON)
	require.Equal(t, "-", list[1].RfpID)
	require.JSONEq(t, `{"raw":"not json"}`, list[1].DetailsJSON)

	list, err = s.errors.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
