package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rfp-manager/internal/application"
	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ingesterrors"
	"github.com/bryanwahyu/rfp-manager/internal/domain/mail"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

// Extractor turns vendor emails into proposal records and scores them.
type Extractor interface {
	ExtractProposal(ctx context.Context, emailText string) (ai.ProposalExtraction, error)
	RateProposal(ctx context.Context, rfp *rfps.Rfp, p ai.ProposalExtraction) (ai.Rating, error)
}

// Outcome status, used for metrics. Not part of the webhook body.
const (
	StatusCreated = "created"
	StatusIgnored = "ignored"
	StatusFailed  = "failed"
)

const (
	MsgVendorNotFound = "Email received but vendor not found"
	MsgRfpIDNotFound  = "Email received but RFP ID not found"
	MsgRfpNotFound    = "Email received but RFP not found"
	MsgNoContent      = "Email received but has no content"
	MsgCreated        = "Proposal created successfully"
	MsgFailed         = "Error processing email"
)

// ProposalSummary is the short form of a created proposal returned to the
// mail provider.
type ProposalSummary struct {
	ID         rfps.ProposalID `json:"id"`
	VendorName string          `json:"vendorName"`
	RfpTitle   string          `json:"rfpTitle"`
	TotalPrice *float64        `json:"totalPrice"`
	Score      float64         `json:"score"`
	AIAnalysis string          `json:"aiAnalysis"`
}

// Outcome is the webhook response for one inbound email. Success is only
// set once the pipeline owns the email (created or failed).
type Outcome struct {
	Status      string            `json:"-"`
	Success     *bool             `json:"success,omitempty"`
	Message     string            `json:"message"`
	VendorEmail string            `json:"vendorEmail,omitempty"`
	RfpID       rfps.ID           `json:"rfpId,omitempty"`
	Proposal    *ProposalSummary  `json:"proposal,omitempty"`
	Attachments []mail.Attachment `json:"attachments,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Service reconciles inbound vendor emails into proposals.
type Service struct {
	Vendors  vendors.Repository
	Rfps     rfps.Repository
	AI       Extractor
	Notifier mail.Notifier
	// Store archives attachments. Optional.
	Store mail.AttachmentStore
	// Errors records failures past the early-exit guards. Optional.
	Errors ingesterrors.Repository
	// Input builds the extraction text of an email. Defaults to its body.
	Input  func(mail.InboundEmail) string
	Clock  application.Clock
	Logger *zap.Logger
}

// Process runs the pipeline for one webhook delivery. It never returns an
// error: every branch becomes an Outcome so the provider does not retry.
func (s *Service) Process(ctx context.Context, e mail.InboundEmail) (out Outcome) {
	log := s.Logger.With(zap.String("from", e.From), zap.String("subject", e.Subject))
	defer func() {
		if r := recover(); r != nil {
			log.Error("inbound pipeline panic", zap.Any("panic", r))
			out = failed(fmt.Errorf("panic: %v", r))
		}
	}()

	md, err := ExtractMetadata(ctx, s.Vendors, e)
	if err != nil {
		log.Warn("metadata extraction failed", zap.Error(err))
	}
	if md.Vendor == nil {
		log.Warn("vendor not found", zap.String("vendor_email", md.VendorEmail))
		return Outcome{Status: StatusIgnored, Message: MsgVendorNotFound, VendorEmail: md.VendorEmail}
	}
	if md.RfpID == "" {
		return Outcome{Status: StatusIgnored, Message: MsgRfpIDNotFound}
	}

	rfp, err := s.Rfps.Get(ctx, md.RfpID)
	if errors.Is(err, errs.ErrNotFound) {
		return Outcome{Status: StatusIgnored, Message: MsgRfpNotFound, RfpID: md.RfpID}
	}
	if err != nil {
		log.Error("load rfp failed", zap.String("rfp_id", string(md.RfpID)), zap.Error(err))
		return failed(err)
	}

	body := e.Body()
	if strings.TrimSpace(body) == "" {
		return Outcome{Status: StatusIgnored, Message: MsgNoContent}
	}

	input := body
	if s.Input != nil {
		input = s.Input(e)
	}
	ing := ingestion{rfp: rfp, vendor: md.Vendor, raw: body, input: input, subject: e.Subject}
	p, err := s.ingest(ctx, ing)
	if err != nil {
		log.Error("inbound email failed", zap.String("rfp_id", string(rfp.ID)), zap.Error(err))
		return failed(err)
	}

	attachments := s.archive(ctx, ing, p, e.Attachments)

	ok := true
	return Outcome{
		Status:  StatusCreated,
		Success: &ok,
		Message: MsgCreated,
		Proposal: &ProposalSummary{
			ID:         p.ID,
			VendorName: md.Vendor.Name,
			RfpTitle:   rfp.Title,
			TotalPrice: p.TotalPrice,
			Score:      p.Score,
			AIAnalysis: p.AIAnalysis,
		},
		Attachments: attachments,
	}
}

func failed(err error) Outcome {
	ok := false
	return Outcome{Status: StatusFailed, Success: &ok, Message: MsgFailed, Error: err.Error()}
}

// Ingest is the direct path: the RFP and vendor are named by the caller and
// the text runs through extraction, rating and confirmation.
func (s *Service) Ingest(ctx context.Context, rfpID rfps.ID, vendorID vendors.ID, text string) (*rfps.Proposal, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, fmt.Errorf("%w: text is required", errs.ErrInvalidInput)
	case rfpID == "":
		return nil, fmt.Errorf("%w: rfpId is required", errs.ErrInvalidInput)
	case vendorID == "":
		return nil, fmt.Errorf("%w: vendorId is required", errs.ErrInvalidInput)
	}
	rfp, err := s.Rfps.Get(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	v, err := s.Vendors.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	p, err := s.ingest(ctx, ingestion{rfp: rfp, vendor: v, raw: text, input: text})
	if err != nil {
		return nil, err
	}
	p.Vendor = v
	return p, nil
}

// RecentErrors lists the latest recorded ingest failures.
func (s *Service) RecentErrors(ctx context.Context, limit int) ([]*ingesterrors.IngestError, error) {
	if s.Errors == nil {
		return []*ingesterrors.IngestError{}, nil
	}
	return s.Errors.Latest(ctx, limit)
}

type ingestion struct {
	rfp     *rfps.Rfp
	vendor  *vendors.Vendor
	raw     string
	input   string
	subject string
}

// ingest extracts, persists, rates and confirms one proposal. Only extraction
// and persistence failures are returned; rating and confirmation are
// best-effort once the proposal exists.
func (s *Service) ingest(ctx context.Context, in ingestion) (*rfps.Proposal, error) {
	extracted, err := s.AI.ExtractProposal(ctx, in.input)
	if err != nil {
		s.record(ctx, in, ingesterrors.PhaseExtract, err)
		return nil, err
	}
	parsed, err := json.Marshal(extracted)
	if err != nil {
		return nil, fmt.Errorf("%w: encode parsed data: %v", errs.ErrPersistence, err)
	}

	now := s.Clock.Now()
	p := &rfps.Proposal{
		ID:         rfps.ProposalID(uuid.NewString()),
		RfpID:      in.rfp.ID,
		VendorID:   in.vendor.ID,
		RawEmail:   in.raw,
		ParsedData: parsed,
		TotalPrice: extracted.TotalPrice,
		Status:     rfps.ProposalPending,
		Score:      0,
		AIAnalysis: rfps.PendingAnalysis,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Rfps.CreateProposal(ctx, p); err != nil {
		s.record(ctx, in, ingesterrors.PhasePersist, err)
		return nil, err
	}
	s.Logger.Info("proposal created",
		zap.String("proposal_id", string(p.ID)),
		zap.String("rfp_id", string(in.rfp.ID)),
		zap.String("vendor", in.vendor.Name),
	)

	s.rate(ctx, in, p, extracted)

	if err := s.Notifier.SendProposalReceived(ctx, in.rfp, in.vendor, p); err != nil {
		s.Logger.Warn("confirmation email failed", zap.String("proposal_id", string(p.ID)), zap.Error(err))
		s.record(ctx, in, ingesterrors.PhaseConfirmation, err)
	}
	return p, nil
}

func (s *Service) rate(ctx context.Context, in ingestion, p *rfps.Proposal, extracted ai.ProposalExtraction) {
	score, analysis := 0.0, ""
	rating, err := s.AI.RateProposal(ctx, in.rfp, extracted)
	if err != nil {
		s.Logger.Warn("proposal rating failed", zap.String("proposal_id", string(p.ID)), zap.Error(err))
		s.record(ctx, in, ingesterrors.PhaseRating, err)
		analysis = "AI analysis failed: " + err.Error()
	} else {
		score, analysis = rating.Score, rating.Reason
	}

	at := s.Clock.Now()
	if err := s.Rfps.UpdateRating(ctx, p.ID, score, analysis, at); err != nil {
		s.Logger.Warn("store rating failed", zap.String("proposal_id", string(p.ID)), zap.Error(err))
		s.record(ctx, in, ingesterrors.PhasePersist, err)
		return
	}
	p.Score, p.AIAnalysis, p.UpdatedAt = score, analysis, at
}

// archive uploads attachments when a store is configured and returns their
// metadata. Upload failures only drop the URL.
func (s *Service) archive(ctx context.Context, in ingestion, p *rfps.Proposal, files []mail.Attachment) []mail.Attachment {
	out := make([]mail.Attachment, 0, len(files))
	for _, f := range files {
		meta := mail.Attachment{Filename: f.Filename, ContentType: f.ContentType, Size: f.Size}
		if s.Store != nil && len(f.Content) > 0 {
			key := path.Join("inbound", string(p.RfpID), string(p.ID), path.Base(f.Filename))
			url, err := s.Store.Put(ctx, key, f.Content, f.ContentType)
			if err != nil {
				s.Logger.Warn("archive attachment failed", zap.String("key", key), zap.Error(err))
				s.record(ctx, in, ingesterrors.PhaseArchive, err)
			} else {
				meta.URL = url
			}
		}
		out = append(out, meta)
	}
	return out
}

func (s *Service) record(ctx context.Context, in ingestion, phase string, cause error) {
	if s.Errors == nil {
		return
	}
	details := map[string]any{"rfpTitle": in.rfp.Title, "vendorId": in.vendor.ID}
	var verr *ai.ValidationError
	if errors.As(cause, &verr) {
		details["fields"] = verr.Fields
	}
	raw, _ := json.Marshal(details)

	e := &ingesterrors.IngestError{
		ID:          uuid.NewString(),
		Phase:       phase,
		VendorEmail: in.vendor.Email,
		RfpID:       string(in.rfp.ID),
		Subject:     in.subject,
		Message:     cause.Error(),
		DetailsJSON: string(raw),
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Errors.Save(ctx, e); err != nil {
		s.Logger.Warn("record ingest error failed", zap.String("phase", phase), zap.Error(err))
	}
}
