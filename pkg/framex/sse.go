package framex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Abraxas-365/tidal/pkg/kernel"
	"github.com/Abraxas-365/tidal/pkg/logx"
	"github.com/Abraxas-365/tidal/pkg/tokenx"
)

// dataPrefix marks a data line in the SSE stream.
const dataPrefix = "data:"

// doneSentinel signals clean end of stream.
const doneSentinel = "[DONE]"

// Client speaks the structured frame protocol over server-sent events:
// it POSTs a prompt and consumes the chunked response body line by line.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenx.Source
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource attaches a bearer token to every request.
func WithTokenSource(src tokenx.Source) ClientOption {
	return func(c *Client) { c.tokens = src }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request is the outbound payload that starts a run.
type Request struct {
	SessionID kernel.SessionID `json:"session_id"`
	RunID     kernel.RunID     `json:"run_id"`
	Prompt    string           `json:"prompt"`
}

// Stream sends the prompt and returns the frame stream of the response.
// A non-success status is a transport failure before any terminal marker.
func (c *Client) Stream(ctx context.Context, req Request) (Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errorRegistry.NewWithCause(ErrMalformedFrame, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, errorRegistry.NewWithCause(ErrTransportFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errorRegistry.NewWithCause(ErrTransportFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errorRegistry.New(ErrUnexpectedStatus).
			WithDetail("status", resp.StatusCode)
	}

	return NewSSEStream(resp.Body), nil
}

// sseStream decodes frames from an SSE body. Unparseable lines are skipped;
// an abrupt end of body before the [DONE] sentinel is a transport failure.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// NewSSEStream wraps an already-open SSE body as a Stream. The stream owns
// the body and closes it on Close.
func NewSSEStream(body io.ReadCloser) Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: body, scanner: scanner}
}

// Next returns the next frame, io.EOF after the [DONE] sentinel, or a
// transport error if the connection drops first.
func (s *sseStream) Next() (Frame, error) {
	if s.done {
		return Frame{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneSentinel {
			s.done = true
			return Frame{}, io.EOF
		}

		frame, err := Parse([]byte(payload))
		if err != nil {
			// Malformed frames are skipped, not fatal.
			logx.WithError(err).Debug("skipping malformed frame")
			continue
		}
		return frame, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return Frame{}, errorRegistry.NewWithCause(ErrTransportFailed, err)
	}

	// The body ended without the sentinel: connection dropped before a
	// terminal marker.
	return Frame{}, errorRegistry.New(ErrTransportFailed).
		WithDetail("reason", "stream ended without sentinel")
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}
