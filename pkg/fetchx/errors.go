package fetchx

import "github.com/Abraxas-365/tidal/pkg/errx"

var fetchErrors = errx.NewRegistry("FETCHX")

var (
	ErrRequestFailed    = fetchErrors.Register("REQUEST_FAILED", errx.TypeExternal, 502, "Resource request failed")
	ErrUnexpectedStatus = fetchErrors.Register("UNEXPECTED_STATUS", errx.TypeExternal, 502, "Resource endpoint returned unexpected status")
	ErrNoLocation       = fetchErrors.Register("NO_LOCATION", errx.TypeValidation, 400, "File descriptor carries no fetchable location")
	ErrEncode           = fetchErrors.Register("ENCODE", errx.TypeInternal, 500, "Failed to encode resource")
	ErrDecode           = fetchErrors.Register("DECODE", errx.TypeInternal, 500, "Failed to decode resource")
)
