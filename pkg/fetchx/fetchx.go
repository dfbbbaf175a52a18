package fetchx

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Abraxas-365/tidal/pkg/asyncx"
	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/ptrx"
)

// Resource is the fetched body of a generated artifact. Resources are
// immutable once fetched; the same descriptor always yields the same bytes.
type Resource struct {
	Key         string `json:"key"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// Fetcher retrieves the body behind a file descriptor from its origin.
type Fetcher interface {
	Fetch(ctx context.Context, fd framex.FileDescriptor) (Resource, error)
}

// ─── HTTP ────────────────────────────────────────────────────────────────────

// HTTPFetcher fetches artifacts over plain HTTP with retries.
type HTTPFetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// HTTPOption customizes an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithRetry sets the attempt count and initial backoff.
func WithRetry(attempts int, backoff time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.attempts = attempts
		f.backoff = backoff
	}
}

// NewHTTPFetcher creates an HTTP fetcher with sane defaults.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the descriptor's URL, retrying transient failures with
// exponential backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, fd framex.FileDescriptor) (Resource, error) {
	if fd.URL == "" {
		return Resource{}, fetchErrors.New(ErrNoLocation).WithDetail("file_id", fd.ID)
	}

	return asyncx.RetryWithBackoff(ctx, f.attempts, f.backoff, func(ctx context.Context) (Resource, error) {
		return f.fetchOnce(ctx, fd)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, fd framex.FileDescriptor) (Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fd.URL, nil)
	if err != nil {
		return Resource{}, fetchErrors.NewWithCause(ErrRequestFailed, err).WithDetail("url", fd.URL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Resource{}, fetchErrors.NewWithCause(ErrRequestFailed, err).WithDetail("url", fd.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Resource{}, fetchErrors.New(ErrUnexpectedStatus).
			WithDetail("url", fd.URL).
			WithDetail("status", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Resource{}, fetchErrors.NewWithCause(ErrRequestFailed, err).WithDetail("url", fd.URL)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = fd.MIME
	}

	return Resource{Key: fd.ID, Data: data, ContentType: contentType}, nil
}

// ─── S3 ──────────────────────────────────────────────────────────────────────

// S3Fetcher fetches artifacts whose descriptors point into an S3 bucket.
// The descriptor URL is interpreted as an object key, with an optional
// "s3://bucket/" prefix that overrides the configured bucket.
type S3Fetcher struct {
	client *s3.Client
	bucket string
}

// NewS3Fetcher creates a fetcher over client defaulting to bucket.
func NewS3Fetcher(client *s3.Client, bucket string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket}
}

// Fetch downloads the object behind the descriptor, retrying failed
// attempts without extra delay (the SDK backs off internally).
func (f *S3Fetcher) Fetch(ctx context.Context, fd framex.FileDescriptor) (Resource, error) {
	bucket, key := f.locate(fd)
	if key == "" {
		return Resource{}, fetchErrors.New(ErrNoLocation).WithDetail("file_id", fd.ID)
	}

	return asyncx.Retry(ctx, 3, func(ctx context.Context) (Resource, error) {
		return f.getObject(ctx, fd, bucket, key)
	})
}

func (f *S3Fetcher) getObject(ctx context.Context, fd framex.FileDescriptor, bucket, key string) (Resource, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: ptrx.Ptr(bucket),
		Key:    ptrx.Ptr(key),
	})
	if err != nil {
		return Resource{}, fetchErrors.NewWithCause(ErrRequestFailed, err).
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Resource{}, fetchErrors.NewWithCause(ErrRequestFailed, err).WithDetail("key", key)
	}

	contentType := ptrx.Value(out.ContentType)
	if contentType == "" {
		contentType = fd.MIME
	}

	return Resource{Key: fd.ID, Data: data, ContentType: contentType}, nil
}

func (f *S3Fetcher) locate(fd framex.FileDescriptor) (bucket, key string) {
	loc := fd.URL
	if loc == "" {
		return f.bucket, fd.ID
	}
	if rest, ok := strings.CutPrefix(loc, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found {
			return f.bucket, ""
		}
		return bucket, key
	}
	return f.bucket, strings.TrimPrefix(loc, "/")
}
