package historypg

import "github.com/Abraxas-365/tidal/pkg/errx"

var pgErrors = errx.NewRegistry("HISTORYX_PG")

var (
	ErrQuery     = pgErrors.Register("QUERY", errx.TypeInternal, 500, "Postgres query failed")
	ErrMarshal   = pgErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal conversation entries")
	ErrUnmarshal = pgErrors.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal conversation entries")
	ErrConflict  = pgErrors.Register("CONFLICT", errx.TypeConflict, 409, "Conversation conflicts with an existing row")
)
