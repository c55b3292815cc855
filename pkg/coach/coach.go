// Package coach implements the generative collaborators around the live
// engine: per-turn evaluation, end-of-session summaries, topic suggestion,
// vocabulary mining, and text conversion. All calls are plain
// request/response against the Gemini API with JSON-schema constrained
// output.
package coach

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/fluentloop/fluentloop/pkg/core"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps the generative backend shared by all coach calls.
type Client struct {
	genai  *genai.Client
	model  string
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithModel overrides the default generation model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a coach client for the given API key.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, core.NewConnectionFailedError("create generative client", err)
	}
	c := &Client{
		genai:  gc,
		model:  defaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// generateJSON runs one schema-constrained generation and decodes the
// response text into out.
func (c *Client) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return core.NewConnectionFailedError("generate content", err)
	}
	text := responseText(resp)
	if text == "" {
		return core.NewMalformedResponseError("empty generation response", nil)
	}
	return decodeJSON([]byte(text), out)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// decodeJSON parses a schema-constrained payload, mapping parse failures to
// the malformed response taxonomy so callers can recover locally.
func decodeJSON(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return core.NewMalformedResponseError("decode generation payload", err)
	}
	return nil
}
