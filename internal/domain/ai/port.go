package ai

import "context"

// Default sampling temperatures.
const (
	ExtractionTemperature float32 = 0.1
	ChatTemperature       float32 = 1.0
)

// Request is one generation call.
type Request struct {
	// System is an optional instruction sent ahead of the conversation.
	System string
	// Prompt is the final user turn.
	Prompt string
	// History holds earlier turns, oldest first. It must already be normalized.
	History []Turn
	// Shape, when set, is passed to providers that support constrained decoding.
	Shape       *Shape
	Temperature float32
}

// Client port (interface untuk provider LLM)
type Client interface {
	// Generate returns the raw completion text. Provider failures and empty
	// completions are reported as ErrUpstream.
	Generate(ctx context.Context, req Request) (string, error)
}
