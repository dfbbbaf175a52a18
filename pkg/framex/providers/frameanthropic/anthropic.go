// Package frameanthropic adapts the Anthropic Messages streaming API into
// the frame protocol. Claude's raw stream interleaves tool reasoning with
// answer text, so every event is routed through a framex.TurnScanner; the
// session downstream only ever sees frames.
package frameanthropic

import (
	"context"
	"io"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Abraxas-365/tidal/pkg/framex"
)

const defaultModel = "claude-sonnet-4-20250514"

// Provider turns prompts into frame streams via the Anthropic API.
type Provider struct {
	client anthropic.Client
	apiKey string
	model  string
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithModel overrides the default model.
func WithModel(model string) ProviderOption {
	return func(p *Provider) { p.model = model }
}

// NewProvider creates a provider. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	p := &Provider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream starts a model response for the request's prompt and returns it as
// a frame stream. Satisfies chatx.Transport.
func (p *Provider) Stream(ctx context.Context, req framex.Request) (framex.Stream, error) {
	if p.apiKey == "" {
		return nil, errorRegistry.New(ErrMissingAPIKey)
	}
	if req.Prompt == "" {
		return nil, errorRegistry.New(ErrEmptyPrompt)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	sdk := p.client.Messages.NewStreaming(ctx, params)

	return &anthropicStream{
		sdk:     sdk,
		scanner: framex.NewTurnScanner(req.RunID),
	}, nil
}

type anthropicStream struct {
	sdk interface {
		Next() bool
		Current() anthropic.MessageStreamEventUnion
		Err() error
		Close() error
	}
	scanner *framex.TurnScanner

	queue     []framex.Frame
	lastError error
}

// Next returns the next frame, buffering when one SDK event expands to
// several frames. io.EOF after the scanner has flushed its final frames.
func (s *anthropicStream) Next() (framex.Frame, error) {
	for {
		if len(s.queue) > 0 {
			f := s.queue[0]
			s.queue = s.queue[1:]
			return f, nil
		}

		if s.lastError != nil {
			return framex.Frame{}, s.lastError
		}

		if !s.sdk.Next() {
			if err := s.sdk.Err(); err != nil {
				s.lastError = ParseAnthropicError(err)
			} else {
				s.queue = s.scanner.Finish()
				s.lastError = io.EOF
			}
			continue
		}

		s.queue = s.scanner.Push(s.chunk(s.sdk.Current()))
	}
}

// chunk maps one SDK event to a scanner chunk.
func (s *anthropicStream) chunk(event anthropic.MessageStreamEventUnion) framex.Chunk {
	switch event.Type {
	case "content_block_start":
		if event.ContentBlock.Type == "tool_use" {
			return framex.Chunk{Tools: []string{event.ContentBlock.Name}}
		}

	case "content_block_delta":
		if event.Delta.Type == "text_delta" {
			return framex.Chunk{Text: event.Delta.Text}
		}

	case "message_delta":
		if event.Delta.StopReason == "tool_use" {
			return framex.Chunk{Reason: framex.ReasonToolSegment}
		}

	case "message_stop":
		return framex.Chunk{Reason: framex.ReasonFinal}
	}

	return framex.Chunk{}
}

func (s *anthropicStream) Close() error {
	return s.sdk.Close()
}
