package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/rfp-manager/internal/application"
	"github.com/bryanwahyu/rfp-manager/internal/domain"
	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/domain/rfps"
	"github.com/bryanwahyu/rfp-manager/internal/infra/ai/llmjson"
	"github.com/bryanwahyu/rfp-manager/internal/infra/ai/prompt"
)

const maxSuggestions = 4

// Service runs the structured LLM tasks: prompt, generate, parse, validate.
type Service struct {
	client     ai.Client
	clock      application.Clock
	extraction float32
	chat       float32
}

// NewService builds the service. Zero temperatures fall back to the defaults.
func NewService(client ai.Client, clock application.Clock, extraction, chat float32) *Service {
	if extraction <= 0 {
		extraction = ai.ExtractionTemperature
	}
	if chat <= 0 {
		chat = ai.ChatTemperature
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{client: client, clock: clock, extraction: extraction, chat: chat}
}

func run[T any](ctx context.Context, client ai.Client, req ai.Request, shape ai.Shape) (T, error) {
	var zero T
	req.Shape = &shape
	raw, err := client.Generate(ctx, req)
	if err != nil {
		return zero, err
	}
	v, err := llmjson.Parse(raw)
	if err != nil {
		return zero, err
	}
	return ai.Decode[T](shape, v)
}

// GenerateRfp drafts an RFP from a free-text description.
func (s *Service) GenerateRfp(ctx context.Context, description string) (ai.RfpDraft, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return ai.RfpDraft{}, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}
	draft, err := run[ai.RfpDraft](ctx, s.client, ai.Request{
		Prompt:      prompt.RfpFromDescription(s.clock.Now(), description),
		Temperature: s.extraction,
	}, ai.RfpShape)
	if err != nil {
		return ai.RfpDraft{}, fmt.Errorf("generate rfp: %w", err)
	}
	return withItems(draft), nil
}

// GenerateRfpFromChat drafts an RFP from a chat transcript.
func (s *Service) GenerateRfpFromChat(ctx context.Context, history []ai.Turn) (ai.RfpDraft, error) {
	turns := ai.NormalizeHistory(history, "")
	if len(turns) == 0 {
		return ai.RfpDraft{}, fmt.Errorf("%w: history must contain at least one user message", domain.ErrInvalidInput)
	}
	draft, err := run[ai.RfpDraft](ctx, s.client, ai.Request{
		Prompt:      prompt.RfpFromChat(s.clock.Now(), turns),
		Temperature: s.extraction,
	}, ai.RfpShape)
	if err != nil {
		return ai.RfpDraft{}, fmt.Errorf("generate rfp from chat: %w", err)
	}
	return withItems(draft), nil
}

// ExtractProposal pulls the commercial terms out of a vendor email.
func (s *Service) ExtractProposal(ctx context.Context, emailText string) (ai.ProposalExtraction, error) {
	p, err := run[ai.ProposalExtraction](ctx, s.client, ai.Request{
		Prompt:      prompt.ProposalExtraction(s.clock.Now(), emailText),
		Temperature: s.extraction,
	}, ai.ProposalShape)
	if err != nil {
		return ai.ProposalExtraction{}, fmt.Errorf("extract proposal: %w", err)
	}
	return p, nil
}

// RateProposal scores an extracted proposal against its RFP.
func (s *Service) RateProposal(ctx context.Context, rfp *rfps.Rfp, p ai.ProposalExtraction) (ai.Rating, error) {
	r, err := run[ai.Rating](ctx, s.client, ai.Request{
		Prompt:      prompt.Rating(s.clock.Now(), rfp, p),
		Temperature: s.extraction,
	}, ai.RatingShape)
	if err != nil {
		return ai.Rating{}, fmt.Errorf("rate proposal: %w", err)
	}
	return r, nil
}

// Chat produces the next assistant turn of the intake conversation.
func (s *Service) Chat(ctx context.Context, history []ai.Turn, message string) (ai.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ai.ChatReply{}, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	reply, err := run[ai.ChatReply](ctx, s.client, ai.Request{
		System:      prompt.ChatSystem(s.clock.Now()),
		History:     ai.NormalizeHistory(history, message),
		Prompt:      message,
		Temperature: s.chat,
	}, ai.ChatShape)
	if err != nil {
		return ai.ChatReply{}, fmt.Errorf("chat: %w", err)
	}

	chips := make([]string, 0, maxSuggestions)
	for _, c := range reply.Suggestions {
		if c = strings.TrimSpace(c); c != "" && len(chips) < maxSuggestions {
			chips = append(chips, c)
		}
	}
	reply.Suggestions = chips
	return reply, nil
}

func withItems(d ai.RfpDraft) ai.RfpDraft {
	if d.Items == nil {
		d.Items = []rfps.Item{}
	}
	return d
}
