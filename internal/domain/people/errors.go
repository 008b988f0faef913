// path: internal/domain/people/errors.go
package people

import "errors"

var (
	ErrPersonNotFound   = errors.New("person not found")
	ErrInsightNotFound  = errors.New("person insight not found")
	ErrInvalidChannel   = errors.New("channel is required")
	ErrInvalidHandle    = errors.New("handle is required")
	ErrInvalidEventType = errors.New("invalid event type")
)
