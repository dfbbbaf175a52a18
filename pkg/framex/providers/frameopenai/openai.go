// Package frameopenai adapts the OpenAI Chat Completions streaming API into
// the frame protocol, routing every chunk through a framex.TurnScanner so
// tool-call segments surface as status instead of content.
package frameopenai

import (
	"context"
	"io"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Abraxas-365/tidal/pkg/framex"
)

const defaultModel = openai.ChatModelGPT4o

// Provider turns prompts into frame streams via the OpenAI API.
type Provider struct {
	client openai.Client
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
// OPENAI_API_KEY environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	p := &Provider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
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

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}

	sdk := p.client.Chat.Completions.NewStreaming(ctx, params)

	return &openAIStream{
		sdk:     sdk,
		scanner: framex.NewTurnScanner(req.RunID),
	}, nil
}

type openAIStream struct {
	sdk interface {
		Next() bool
		Current() openai.ChatCompletionChunk
		Err() error
		Close() error
	}
	scanner *framex.TurnScanner

	queue     []framex.Frame
	lastError error
}

// Next returns the next frame, buffering when one SDK chunk expands to
// several frames. io.EOF after the scanner has flushed its final frames.
func (s *openAIStream) Next() (framex.Frame, error) {
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
				s.lastError = ParseOpenAIError(err)
			} else {
				s.queue = s.scanner.Finish()
				s.lastError = io.EOF
			}
			continue
		}

		s.queue = s.scanner.Push(chunk(s.sdk.Current()))
	}
}

// chunk maps one SDK completion chunk to a scanner chunk.
func chunk(c openai.ChatCompletionChunk) framex.Chunk {
	if len(c.Choices) == 0 {
		return framex.Chunk{}
	}
	choice := c.Choices[0]

	out := framex.Chunk{Text: choice.Delta.Content}

	for _, tc := range choice.Delta.ToolCalls {
		if tc.Function.Name != "" {
			out.Tools = append(out.Tools, tc.Function.Name)
		}
	}

	switch choice.FinishReason {
	case "tool_calls", "function_call":
		out.Reason = framex.ReasonToolSegment
	case "stop", "length":
		out.Reason = framex.ReasonFinal
	}

	return out
}

func (s *openAIStream) Close() error {
	return s.sdk.Close()
}
