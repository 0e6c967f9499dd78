package inbound

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

var (
	senderPattern  = regexp.MustCompile(`<([^>]+)>|([^\s]+@[^\s]+)`)
	subjectPattern = regexp.MustCompile(`(?i)RFP[:\s-]+([a-zA-Z0-9-]+)`)
	toPattern      = regexp.MustCompile(`rfp-([a-zA-Z0-9-]+)@`)
)

// Metadata is what can be recovered from the headers of an inbound email.
type Metadata struct {
	VendorEmail string
	Vendor      *vendors.Vendor
	RfpID       rfps.ID
}

// SenderAddress returns the address in a From header: the part inside angle
// brackets, else the first token containing @.
func SenderAddress(from string) string {
	m := senderPattern.FindStringSubmatch(from)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

// RfpIDFrom recovers the RFP id from the subject ("Re: RFP-abc123: Laptops"),
// then from an rfp-<id>@ recipient.
func RfpIDFrom(subject, to string) rfps.ID {
	if m := subjectPattern.FindStringSubmatch(subject); m != nil {
		return rfps.ID(m[1])
	}
	if m := toPattern.FindStringSubmatch(strings.ToLower(to)); m != nil {
		return rfps.ID(m[1])
	}
	return ""
}

// ExtractMetadata resolves the vendor and RFP id of an email. On any error or
// panic the Metadata is empty; the error is only reported for logging.
func ExtractMetadata(ctx context.Context, repo vendors.Repository, e mail.InboundEmail) (md Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			md, err = Metadata{}, fmt.Errorf("extract metadata: %v", r)
		}
	}()

	addr := SenderAddress(e.From)
	var v *vendors.Vendor
	if addr != "" {
		v, err = repo.FindByEmail(ctx, addr)
		if err != nil {
			return Metadata{}, fmt.Errorf("find vendor by email: %w", err)
		}
	}
	return Metadata{VendorEmail: addr, Vendor: v, RfpID: RfpIDFrom(e.Subject, e.To)}, nil
}
