package cacheredis

import "github.com/Abraxas-365/tidal/pkg/errx"

var redisErrors = errx.NewRegistry("CACHEX_REDIS")

var (
	ErrLoad = redisErrors.Register("LOAD", errx.TypeExternal, 500, "Redis load failed")
	ErrSave = redisErrors.Register("SAVE", errx.TypeExternal, 500, "Redis save failed")
)
