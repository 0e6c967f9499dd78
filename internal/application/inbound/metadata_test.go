package inbound_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rfp-manager/internal/application/inbound"
	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
	"github.com/bryanwahyu/rfp-manager/internal/testutils"
)

func TestSenderAddress(t *testing.T) {
	cases := map[string]string{
		"Acme Sales <sales@acme.com>": "sales@acme.com",
		"sales@acme.com":              "sales@acme.com",
		"reply from sales@acme.com":   "sales@acme.com",
		"Acme Sales":                  "",
		"":                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, inbound.SenderAddress(in), in)
	}
}

func TestRfpIDFrom(t *testing.T) {
	assert.Equal(t, rfps.ID("abc123"), inbound.RfpIDFrom("Re: RFP-abc123: Laptops", "procurement@example.com"))
	assert.Equal(t, rfps.ID("abc123"), inbound.RfpIDFrom("re: rfp: abc123", ""))
	assert.Equal(t, rfps.ID("9f2c-41aa"), inbound.RfpIDFrom("Quote attached", "RFP-9F2C-41AA@inbound.example.com"))
	assert.Equal(t, rfps.ID("subj"), inbound.RfpIDFrom("RFP-subj", "rfp-to@inbound.example.com"))
	assert.Equal(t, rfps.ID(""), inbound.RfpIDFrom("Quote attached", "sales@example.com"))
}

type panicVendors struct{ testutils.Vendors }

func (*panicVendors) FindByEmail(context.Context, string) (*vendors.Vendor, error) {
	panic("boom")
}

func TestExtractMetadata(t *testing.T) {
	repo := &testutils.Vendors{}
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &vendors.Vendor{ID: "v1", Name: "Acme", Email: "sales@acme.com", CreatedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &vendors.Vendor{ID: "v2", Name: "Acme Two", Email: "SALES@ACME.COM.au", CreatedAt: time.Now()}))

	md, err := inbound.ExtractMetadata(ctx, repo, mail.InboundEmail{
		From:    "Acme <Sales@Acme.com>",
		Subject: "Re: RFP-abc123: Laptops",
	})
	require.NoError(t, err)
	require.Equal(t, "Sales@Acme.com", md.VendorEmail)
	require.Equal(t, vendors.ID("v1"), md.Vendor.ID)
	require.Equal(t, rfps.ID("abc123"), md.RfpID)

	md, err = inbound.ExtractMetadata(ctx, &panicVendors{}, mail.InboundEmail{From: "a@b.com", Subject: "RFP-x"})
	require.Error(t, err)
	require.Equal(t, inbound.Metadata{}, md)
}
