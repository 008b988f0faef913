// path: internal/domain/content/errors.go
package content

import "errors"

// Content-related errors
var (
	ErrItemNotFound     = errors.New("content item not found")
	ErrVariantNotFound  = errors.New("content variant not found")
	ErrArtifactNotFound = errors.New("artifact not found")

	ErrInvalidWorkspaceID = errors.New("invalid workspace ID")
	ErrInvalidContentID   = errors.New("invalid content ID")
	ErrInvalidContentType = errors.New("invalid content type")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrEmptyTitle         = errors.New("content title cannot be empty")

	ErrInvalidDuration = errors.New("artifact duration must be positive")
	ErrMissingMediaURL = errors.New("artifact media URL is required")
	ErrArtifactConsumed = errors.New("artifact already consumed")

	ErrVariantNotQueued        = errors.New("variant is not queued")
	ErrVariantNotPublishing    = errors.New("variant is not publishing")
	ErrVariantAlreadyPublished = errors.New("variant is already published")
	ErrDuplicateVariant        = errors.New("variant already exists for platform")
)
