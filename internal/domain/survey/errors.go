package survey

import "errors"

// Error taxonomy. Handlers map these with errors.Is; persistence and render
// failures cross the boundary with a generic message only, the cause is
// logged with request metadata.
var (
	ErrValidation  = errors.New("invalid record input")
	ErrNotFound    = errors.New("record not found")
	ErrPersistence = errors.New("record storage failure")
	ErrRender      = errors.New("document generation failure")
)
