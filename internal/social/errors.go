// path: internal/social/errors.go
package social

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
)

var (
	ErrAdapterNotFound   = errors.New("no adapter registered for platform")
	ErrAdapterCollision  = errors.New("adapter already registered for platform")
	ErrAdapterDisabled   = errors.New("adapter is disabled")
	ErrPostStillPending  = errors.New("platform post still processing")
)

// ClassifyHTTP maps an adapter HTTP response code onto the engine's error
// taxonomy. 401/403 expire credentials; 408/429/5xx retry; the rest are
// caller mistakes.
func ClassifyHTTP(statusCode int, body string) error {
	err := fmt.Errorf("platform returned %d: %s", statusCode, truncate(body, 200))
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return common.AuthExpired(err)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests:
		return common.Transient(err)
	case statusCode >= 500:
		return common.Transient(err)
	default:
		return common.Permanent(err)
	}
}

// ClassifyTransport maps a client-side error: timeouts and connection
// failures are transient.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return common.Transient(err)
	}
	return common.Transient(fmt.Errorf("adapter transport: %w", err))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
