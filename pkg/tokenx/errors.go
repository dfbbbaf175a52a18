package tokenx

import (
	"net/http"

	"github.com/Abraxas-365/tidal/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("TOKENX")

	ErrNoToken = errorRegistry.Register(
		"NO_TOKEN",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"No token stored",
	)

	ErrTokenExpired = errorRegistry.Register(
		"TOKEN_EXPIRED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Stored token is expired",
	)

	ErrStoreFailed = errorRegistry.Register(
		"STORE_FAILED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Failed to read or write the token store",
	)
)
