package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
)

const (
	maxTokens    = 2048
	defaultModel = "gpt-4o-mini"
)

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens and a fixed temperature
func isReasoning(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

func (c *Client) Generate(ctx context.Context, in ai.Request) (string, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages(in),
	}
	if in.Shape != nil {
		def := Schema(*in.Shape)
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        in.Shape.Name,
				Description: in.Shape.Description,
				Schema:      &def,
			},
		}
	}
	if isReasoning(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = in.Temperature
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if quota(err) {
			return "", fmt.Errorf("%w: %w: %v", ai.ErrUpstream, ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("%w: failed to create chat completion: %v", ai.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no content in response", ai.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func messages(in ai.Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(in.History)+2)
	if in.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: in.System})
	}
	for _, t := range in.History {
		role := openai.ChatMessageRoleUser
		if t.Role == ai.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: in.Prompt})
}

func quota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// Schema converts a shape into the JSON schema sent as response format.
func Schema(s ai.Shape) jsonschema.Definition {
	return object(s.Description, s.Fields)
}

func object(desc string, fields []ai.Field) jsonschema.Definition {
	def := jsonschema.Definition{
		Type:        jsonschema.Object,
		Description: desc,
		Properties:  make(map[string]jsonschema.Definition, len(fields)),
	}
	for _, f := range fields {
		def.Properties[f.Name] = definition(f)
		if f.Required {
			def.Required = append(def.Required, f.Name)
		}
	}
	return def
}

func definition(f ai.Field) jsonschema.Definition {
	switch f.Kind {
	case ai.KindObject:
		return object(f.Description, f.Fields)
	case ai.KindArray:
		def := jsonschema.Definition{Type: jsonschema.Array, Description: f.Description}
		if f.Items != nil {
			items := definition(*f.Items)
			def.Items = &items
		}
		return def
	case ai.KindNumber:
		return jsonschema.Definition{Type: jsonschema.Number, Description: f.Description}
	case ai.KindInteger:
		return jsonschema.Definition{Type: jsonschema.Integer, Description: f.Description}
	case ai.KindBoolean:
		return jsonschema.Definition{Type: jsonschema.Boolean, Description: f.Description}
	default:
		return jsonschema.Definition{Type: jsonschema.String, Description: f.Description}
	}
}
