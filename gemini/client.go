package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/ponder"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ ponder.Client = (*Client)(nil)

// Client implements [ponder.Client] for the Google Gemini API.
type Client struct {
	client         *genai.Client
	model          string
	reasoningModel string
	system         string
	maxTokens      int
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model used for ordinary requests.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithReasoningModel sets the model used when a request asks for reasoning.
func WithReasoningModel(model string) Option {
	return func(c *Client) { c.reasoningModel = model }
}

// WithSystemPrompt sets the system instruction sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.system = prompt }
}

// WithMaxTokens caps the output length.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client:         gc,
		model:          defaultModel,
		reasoningModel: defaultReasoningModel,
		maxTokens:      defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Open starts a streaming generation for req. The request is sent lazily on
// the first call to Next, so connection failures surface there.
func (c *Client) Open(ctx context.Context, req ponder.Request) (ponder.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := c.model
	if req.Reasoning {
		model = c.reasoningModel
	}
	seq := c.client.Models.GenerateContentStream(ctx, model, Contents(req), BuildConfig(req, c.system, c.maxTokens))
	return NewStream(model, seq), nil
}

// Contents converts a request to the single user turn sent to the API.
func Contents(req ponder.Request) []*genai.Content {
	return []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.Message}},
	}}
}

// BuildConfig returns the generation config for req. Thoughts are requested
// only in reasoning mode.
func BuildConfig(req ponder.Request, system string, maxTokens int) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if req.Reasoning {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return config
}
