package framex

import (
	"net/http"

	"github.com/Abraxas-365/tidal/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("FRAMEX")

	// ErrMalformedFrame marks an unparseable line or a frame missing a
	// required field. Recovered silently by callers; the line is skipped.
	ErrMalformedFrame = errorRegistry.Register(
		"MALFORMED_FRAME",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Frame could not be parsed",
	)

	// ErrTransportFailed marks a connection drop or non-success status
	// before a terminal marker. The reducer turns it into errorFinish.
	ErrTransportFailed = errorRegistry.Register(
		"TRANSPORT_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Transport failed before a terminal marker",
	)

	// ErrUnexpectedStatus marks a non-200 response from the backend.
	ErrUnexpectedStatus = errorRegistry.Register(
		"UNEXPECTED_STATUS",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Backend returned a non-success status",
	)
)

// IsTransportFailure reports whether err is a transport-level failure that
// should surface as errorFinish rather than a clean end of stream.
func IsTransportFailure(err error) bool {
	var e *errx.Error
	if !errx.As(err, &e) {
		// Unrecognized errors from the wire are transport failures too.
		return err != nil
	}
	return e.Type == errx.TypeExternal
}
