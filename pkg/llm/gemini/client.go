// Package gemini implements llm.Provider on Google Gemini through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hireflow/careermem-go/pkg/llm"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Client is a Gemini LLM client implementing llm.Provider.
type Client struct {
	client *genai.Client
	model  string
}

// Config is the configuration for Gemini.
// APIKey: Gemini API key (required)
// Model: Model name, defaults to DefaultModel
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a new Gemini client.
//
// Args:
//   - ctx: Context used while constructing the SDK client
//   - cfg: Gemini configuration
//
// Returns:
//   - *Client: Gemini client instance
//   - error: Returns an error if the API key is missing or the SDK rejects the configuration
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model}, nil
}

// Generate generates text based on the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// GenerateWithMessages generates text using message history. System messages
// become the system instruction and assistant messages use the model role.
// With llm.WithJSONMode the response MIME type is set to application/json.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	system, rest := llm.SplitSystem(messages)
	temperature := float32(options.Temperature)
	topP := float32(options.TopP)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: int32(options.MaxTokens),
		StopSequences:   options.Stop,
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(strings.Join(system, "\n\n"))},
		}
	}
	if options.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		// consecutive turns of one role are folded into a single content
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.NewPartFromText(m.Content))
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}

	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", llm.ErrEmptyResponse
	}
	return sb.String(), nil
}

// Close releases the client. The genai client holds no resources that need closing.
func (c *Client) Close() error {
	return nil
}
