// path: internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// APIRateLimit bounds each client to requestLimit requests per window,
// keyed by IP.
func APIRateLimit(requestLimit int, window time.Duration) func(next http.Handler) http.Handler {
	if requestLimit <= 0 {
		requestLimit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
