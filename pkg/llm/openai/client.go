// Package openai implements llm.Provider on the OpenAI chat completions API.
//
// The same client serves OpenAI-compatible endpoints such as DeepSeek and
// DashScope compatible mode (Qwen) through the preset constructors.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hireflow/careermem-go/pkg/llm"
)

// Preset endpoints for OpenAI-compatible providers.
const (
	DeepSeekBaseURL = "https://api.deepseek.com"
	QwenBaseURL     = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// Client sends extraction, summary and reply prompts to a chat completions
// endpoint.
type Client struct {
	api   *openai.Client
	model string
	name  string
}

// Config configures a chat completions client.
type Config struct {
	// APIKey authenticates against the endpoint.
	APIKey string

	// Model is used when a call does not override it. Each constructor has
	// its own default.
	Model string

	// BaseURL points at a compatible endpoint or proxy.
	BaseURL string
}

// NewClient creates a client for api.openai.com. Model defaults to gpt-4o-mini.
func NewClient(cfg *Config) (*Client, error) {
	return newClient(cfg, "", "gpt-4o-mini", "openai")
}

// NewDeepSeekClient creates a client for the DeepSeek OpenAI-compatible API.
// BaseURL defaults to DeepSeekBaseURL and Model to "deepseek-chat".
func NewDeepSeekClient(cfg *Config) (*Client, error) {
	return newClient(cfg, DeepSeekBaseURL, "deepseek-chat", "deepseek")
}

// NewQwenClient creates a client for Qwen through DashScope compatible mode.
// BaseURL defaults to QwenBaseURL and Model to "qwen-plus".
func NewQwenClient(cfg *Config) (*Client, error) {
	return newClient(cfg, QwenBaseURL, "qwen-plus", "qwen")
}

func newClient(cfg *Config, baseURL, model, name string) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("openai: config is required")
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case baseURL != "":
		apiCfg.BaseURL = baseURL
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg), model: model, name: name}, nil
}

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// GenerateWithMessages runs one chat completion over messages. JSON mode sets
// response_format to json_object. Compatible endpoints may ignore it.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}
	if options.Model != "" {
		req.Model = options.Model
	}
	if options.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: chat completion: %w", c.name, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w from %s", llm.ErrEmptyResponse, c.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.model
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}
