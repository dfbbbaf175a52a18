package fetchx

import (
	"context"
	"encoding/json"

	"github.com/Abraxas-365/tidal/pkg/cachex"
	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/fsx"
	"github.com/Abraxas-365/tidal/pkg/logx"
)

// Library is the session-scoped resource cache: each generated artifact is
// fetched at most once per session, concurrent requests for the same
// descriptor coalesce onto one fetch, and a failed fetch is retried on the
// next request. Resources are immutable, so no invalidation exists.
type Library struct {
	cache *cachex.Cache[framex.FileDescriptor, Resource]
	spool fsx.FileWriter
}

// LibraryOption customizes a Library.
type LibraryOption func(*libraryConfig)

type libraryConfig struct {
	backing cachex.Backing[framex.FileDescriptor, Resource]
	spool   fsx.FileWriter
}

// WithBacking adds a cross-session second-level store.
func WithBacking(b cachex.Backing[framex.FileDescriptor, Resource]) LibraryOption {
	return func(c *libraryConfig) { c.backing = b }
}

// WithSpool writes each fetched resource to disk under its key.
func WithSpool(w fsx.FileWriter) LibraryOption {
	return func(c *libraryConfig) { c.spool = w }
}

// NewLibrary creates a library over the given origin fetcher.
func NewLibrary(fetcher Fetcher, opts ...LibraryOption) *Library {
	var cfg libraryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var cacheOpts []cachex.Option[framex.FileDescriptor, Resource]
	if cfg.backing != nil {
		cacheOpts = append(cacheOpts, cachex.WithBacking(cfg.backing))
	}

	l := &Library{spool: cfg.spool}
	l.cache = cachex.New(func(ctx context.Context, fd framex.FileDescriptor) (Resource, error) {
		res, err := fetcher.Fetch(ctx, fd)
		if err != nil {
			return Resource{}, err
		}
		if l.spool != nil {
			if werr := l.spool.WriteFile(ctx, res.Key, res.Data); werr != nil {
				logx.WithError(werr).WithField("key", res.Key).Warn("resource spool write failed")
			}
		}
		return res, nil
	}, cacheOpts...)

	return l
}

// Get returns the resource behind fd, fetching it at most once.
func (l *Library) Get(ctx context.Context, fd framex.FileDescriptor) (Resource, error) {
	return l.cache.Get(ctx, fd)
}

// Known reports whether fd has already been fetched successfully.
func (l *Library) Known(fd framex.FileDescriptor) bool {
	return l.cache.Known(fd)
}

// ─── Redis-backed second level ───────────────────────────────────────────────

// ByteBacking is the string-keyed byte store adapted into a descriptor-keyed
// resource backing (cacheredis.RedisBacking satisfies it).
type ByteBacking interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

type resourceBacking struct {
	inner ByteBacking
}

// NewResourceBacking adapts a byte store into a Library backing by JSON
// encoding resources under the descriptor's file id.
func NewResourceBacking(inner ByteBacking) cachex.Backing[framex.FileDescriptor, Resource] {
	return &resourceBacking{inner: inner}
}

func (b *resourceBacking) Load(ctx context.Context, fd framex.FileDescriptor) (Resource, bool, error) {
	data, ok, err := b.inner.Load(ctx, fd.ID)
	if err != nil || !ok {
		return Resource{}, false, err
	}
	var res Resource
	if err := json.Unmarshal(data, &res); err != nil {
		return Resource{}, false, fetchErrors.NewWithCause(ErrDecode, err).WithDetail("file_id", fd.ID)
	}
	return res, true, nil
}

func (b *resourceBacking) Save(ctx context.Context, fd framex.FileDescriptor, res Resource) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fetchErrors.NewWithCause(ErrEncode, err).WithDetail("file_id", fd.ID)
	}
	return b.inner.Save(ctx, fd.ID, data)
}
