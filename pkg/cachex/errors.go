package cachex

import "github.com/Abraxas-365/tidal/pkg/errx"

var cacheErrors = errx.NewRegistry("CACHEX")

var (
	ErrFetchFailed   = cacheErrors.Register("FETCH_FAILED", errx.TypeExternal, 502, "Resource fetch failed")
	ErrBackingFailed = cacheErrors.Register("BACKING_FAILED", errx.TypeExternal, 500, "Cache backing store failed")
)
