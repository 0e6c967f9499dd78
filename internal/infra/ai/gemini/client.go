package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
)

const defaultModel = "gemini-2.0-flash"

// Client talks to the Gemini API. One instance is built at startup and shared.
type Client struct {
	models *genai.Models
	Model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{models: cli.Models, Model: model}, nil
}

func (c *Client) Generate(ctx context.Context, in ai.Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(in.Temperature),
		ResponseMIMEType: "application/json",
	}
	if in.Shape != nil {
		config.ResponseSchema = Schema(*in.Shape)
	}
	if in.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: in.System}}}
	}

	result, err := c.models.GenerateContent(ctx, c.Model, Contents(in), config)
	if err != nil {
		if quota(err) {
			return "", fmt.Errorf("%w: %w: %v", ai.ErrUpstream, ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("%w: gemini generation failed: %v", ai.ErrUpstream, err)
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no content in response", ai.ErrUpstream)
	}
	return text, nil
}

// Contents maps the history and the prompt onto Gemini turns, oldest first.
func Contents(in ai.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(in.History)+1)
	for _, t := range in.History {
		var role genai.Role = genai.RoleUser
		if t.Role == ai.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return append(contents, genai.NewContentFromText(in.Prompt, genai.RoleUser))
}

func quota(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

// Schema converts a shape into the Gemini response schema.
func Schema(s ai.Shape) *genai.Schema {
	return object(s.Description, s.Fields)
}

func object(desc string, fields []ai.Field) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.TypeObject,
		Description: desc,
		Properties:  make(map[string]*genai.Schema, len(fields)),
	}
	for _, f := range fields {
		prop := schema(f)
		if f.Required {
			out.Required = append(out.Required, f.Name)
		} else {
			prop.Nullable = genai.Ptr(true)
		}
		out.Properties[f.Name] = prop
		out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
	}
	return out
}

func schema(f ai.Field) *genai.Schema {
	switch f.Kind {
	case ai.KindObject:
		return object(f.Description, f.Fields)
	case ai.KindArray:
		s := &genai.Schema{Type: genai.TypeArray, Description: f.Description}
		if f.Items != nil {
			s.Items = schema(*f.Items)
		}
		return s
	case ai.KindNumber:
		s := &genai.Schema{Type: genai.TypeNumber, Description: f.Description}
		s.Minimum = f.Min
		s.Maximum = f.Max
		return s
	case ai.KindInteger:
		return &genai.Schema{Type: genai.TypeInteger, Description: f.Description}
	case ai.KindBoolean:
		return &genai.Schema{Type: genai.TypeBoolean, Description: f.Description}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
}
