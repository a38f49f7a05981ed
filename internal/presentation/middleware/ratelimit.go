package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimiter limits each client IP to requestsPerSecond. A non-positive
// rate disables limiting.
func RateLimiter(requestsPerSecond int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(requestsPerSecond, time.Second)
}
