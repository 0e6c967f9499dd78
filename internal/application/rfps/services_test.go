package rfps_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/application"
	apprfps "github.com/bryanwahyu/rfp-manager/internal/application/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
	"github.com/bryanwahyu/rfp-manager/internal/testutils"
)

var now = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type fakeDrafter struct{ draft ai.RfpDraft }

func (f fakeDrafter) GenerateRfp(context.Context, string) (ai.RfpDraft, error) { return f.draft, nil }
func (f fakeDrafter) GenerateRfpFromChat(context.Context, []ai.Turn) (ai.RfpDraft, error) {
	return f.draft, nil
}

type fixture struct {
	svc      *apprfps.Service
	repo     *testutils.Rfps
	vendors  *testutils.Vendors
	notifier *testutils.Notifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vs := &testutils.Vendors{}
	repo := &testutils.Rfps{Vendors: vs}
	n := &testutils.Notifier{}
	return &fixture{
		svc: &apprfps.Service{
			Repo:     repo,
			Vendors:  vs,
			Notifier: n,
			Drafter:  fakeDrafter{draft: ai.RfpDraft{Title: "Laptops"}},
			Clock:    application.FixedClock(now),
			Logger:   zap.NewNop(),
		},
		repo:     repo,
		vendors:  vs,
		notifier: n,
	}
}

func (f *fixture) vendor(t *testing.T, id, email string) {
	t.Helper()
	require.NoError(t, f.vendors.Create(context.Background(), &vendors.Vendor{ID: vendors.ID(id), Name: "Vendor " + id, Email: email, CreatedAt: now}))
}

func (f *fixture) rfp(t *testing.T, id string, status rfps.Status) {
	t.Helper()
	require.NoError(t, f.repo.Create(context.Background(), &rfps.Rfp{ID: rfps.ID(id), Title: "Laptops", Description: "20 laptops", Status: status, CreatedAt: now, UpdatedAt: now}))
}

func (f *fixture) proposal(t *testing.T, id, rfpID, vendorID string, score float64, price *float64) {
	t.Helper()
	require.NoError(t, f.repo.CreateProposal(context.Background(), &rfps.Proposal{
		ID: rfps.ProposalID(id), RfpID: rfps.ID(rfpID), VendorID: vendors.ID(vendorID),
		Score: score, TotalPrice: price, Status: rfps.ProposalPending, CreatedAt: now, UpdatedAt: now,
	}))
}

func price(v float64) *float64 { return &v }

func TestCreateDefaultsToPending(t *testing.T) {
	f := newFixture(t)

	var cmd apprfps.CreateCommand
	require.NoError(t, json.Unmarshal([]byte(`{"Title":" Laptops ","Description":"20 laptops","Items":[{"name":"Laptop","qty":"20","specs":"16GB"}],"Budget":"$50,000","DeliveryDays":30}`), &cmd))

	r, err := f.svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, rfps.StatusPending, r.Status)
	require.Equal(t, "Laptops", r.Title)
	require.Equal(t, []rfps.Item{{Name: "Laptop", Qty: 20, Specs: "16GB"}}, r.Items)
	require.Equal(t, 50000.0, *r.Budget)
	require.Equal(t, 30, *r.DeliveryDays)
	require.NotEmpty(t, r.ID)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), apprfps.CreateCommand{Description: "x"})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.Create(context.Background(), apprfps.CreateCommand{Title: "x"})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCreateRejectsOutOfRangeDeliveryDays(t *testing.T) {
	f := newFixture(t)
	for _, days := range []float64{1e20, math.MaxInt32 + 1, -1, 2.5} {
		_, err := f.svc.Create(context.Background(), apprfps.CreateCommand{
			Title: "Laptops", Description: "20 laptops", DeliveryDays: apprfps.Number{Value: price(days)},
		})
		require.Truef(t, errors.Is(err, domain.ErrInvalidInput), "deliveryDays %v: %v", days, err)
	}

	r, err := f.svc.Create(context.Background(), apprfps.CreateCommand{
		Title: "Laptops", Description: "20 laptops", DeliveryDays: apprfps.Number{Value: price(math.MaxInt32)},
	})
	require.NoError(t, err)
	require.Equal(t, math.MaxInt32, *r.DeliveryDays)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), "Draft")
	require.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSendIsolatesVendorFailures(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "abc123", rfps.StatusPending)
	f.vendor(t, "v1", "a@acme.com")
	f.vendor(t, "v2", "b@beta.com")
	f.notifier.FailFor = map[vendors.ID]error{"v2": errors.New("mailbox full")}

	report, err := f.svc.Send(context.Background(), "abc123", []vendors.ID{"v1", "v2", "ghost", "v1"})
	require.NoError(t, err)
	require.Equal(t, apprfps.SendSummary{Total: 3, Sent: 1, Failed: 2}, report.Summary)
	require.Equal(t, rfps.StatusOpen, report.Status)

	require.Equal(t, apprfps.SendStatusSent, report.Results[0].Status)
	require.Equal(t, "msg-v1", report.Results[0].MessageID)
	require.Equal(t, "mailbox full", report.Results[1].Error)
	require.Equal(t, "vendor not found", report.Results[2].Error)

	r, err := f.repo.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, rfps.StatusOpen, r.Status)
}

func TestSendKeepsPendingWhenNothingSent(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "abc123", rfps.StatusPending)
	f.vendor(t, "v1", "a@acme.com")
	f.notifier.FailFor = map[vendors.ID]error{"v1": errors.New("down")}

	report, err := f.svc.Send(context.Background(), "abc123", []vendors.ID{"v1"})
	require.NoError(t, err)
	require.Equal(t, rfps.StatusPending, report.Status)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "closed", rfps.StatusClosed)

	_, err := f.svc.Send(context.Background(), "closed", nil)
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.Send(context.Background(), "closed", []vendors.ID{"v1"})
	require.True(t, errors.Is(err, domain.ErrConflict))

	_, err = f.svc.Send(context.Background(), "missing", []vendors.ID{"v1"})
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProposalsRanked(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "r1", rfps.StatusOpen)
	f.vendor(t, "v1", "a@acme.com")
	f.proposal(t, "p1", "r1", "v1", 70, price(900))
	f.proposal(t, "p2", "r1", "v1", 90, nil)
	f.proposal(t, "p3", "r1", "v1", 70, nil)
	f.proposal(t, "p4", "r1", "v1", 70, price(800))

	ps, err := f.svc.Proposals(context.Background(), "r1")
	require.NoError(t, err)
	var ids []rfps.ProposalID
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []rfps.ProposalID{"p2", "p4", "p1", "p3"}, ids)
	require.Equal(t, "Vendor v1", ps[0].Vendor.Name)
}

func TestAcceptClosesRfp(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "r1", rfps.StatusOpen)
	f.vendor(t, "v1", "a@acme.com")
	f.proposal(t, "p1", "r1", "v1", 70, nil)
	f.proposal(t, "p2", "r1", "v1", 80, nil)
	f.proposal(t, "p3", "r1", "v1", 60, nil)

	detail, err := f.svc.Accept(context.Background(), "r1", "p2")
	require.NoError(t, err)
	require.Equal(t, rfps.StatusClosed, detail.Status)

	status := map[rfps.ProposalID]rfps.ProposalStatus{}
	for _, p := range detail.Proposals {
		status[p.ID] = p.Status
	}
	require.Equal(t, map[rfps.ProposalID]rfps.ProposalStatus{
		"p1": rfps.ProposalRejected,
		"p2": rfps.ProposalAccepted,
		"p3": rfps.ProposalRejected,
	}, status)
	require.Equal(t, []rfps.ProposalID{"p2"}, f.notifier.Accepted)

	ps, err := f.svc.Proposals(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	require.Equal(t, rfps.ProposalID("p2"), ps[0].ID)

	_, err = f.svc.Accept(context.Background(), "r1", "p1")
	require.True(t, errors.Is(err, domain.ErrConflict))
}

func TestAcceptSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "r1", rfps.StatusOpen)
	f.vendor(t, "v1", "a@acme.com")
	f.proposal(t, "p1", "r1", "v1", 70, nil)
	f.notifier.FailAccepted = errors.New("smtp down")

	detail, err := f.svc.Accept(context.Background(), "r1", "p1")
	require.NoError(t, err)
	require.Equal(t, rfps.StatusClosed, detail.Status)
}

func TestAcceptFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "r1", rfps.StatusOpen)
	f.vendor(t, "v1", "a@acme.com")
	f.proposal(t, "p1", "r1", "v1", 70, nil)
	f.repo.FailAccept = domain.ErrPersistence

	_, err := f.svc.Accept(context.Background(), "r1", "p1")
	require.True(t, errors.Is(err, domain.ErrPersistence))

	r, err := f.repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, rfps.StatusOpen, r.Status)
	require.Empty(t, f.notifier.Accepted)
}

func TestAcceptProposalOfOtherRfp(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "r1", rfps.StatusOpen)
	f.rfp(t, "r2", rfps.StatusOpen)
	f.proposal(t, "p1", "r2", "v1", 70, nil)

	_, err := f.svc.Accept(context.Background(), "r1", "p1")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.rfp(t, "r1", rfps.StatusOpen)
	f.proposal(t, "p1", "r1", "v1", 70, nil)

	p, err := f.svc.Reject(context.Background(), "r1", "p1")
	require.NoError(t, err)
	require.Equal(t, rfps.ProposalRejected, p.Status)

	p, err = f.svc.Reject(context.Background(), "r1", "p1")
	require.NoError(t, err)
	require.Equal(t, rfps.ProposalRejected, p.Status)

	r, err := f.repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, rfps.StatusOpen, r.Status)
}
