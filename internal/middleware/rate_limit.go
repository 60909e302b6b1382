package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/digicom/complaints/pkg/http"
)

// Only the unauthenticated auth endpoints are throttled; everything else
// on the complaint API sits behind a JWT and is bounded per account.
const (
	authAttemptsPerWindow = 5
	authWindow            = 1 * time.Minute
)

// PublicAuthRateLimit throttles register and login attempts per client IP
// to blunt credential stuffing and registration floods.
func PublicAuthRateLimit() func(next http.Handler) http.Handler {
	return limitByRealIP(authAttemptsPerWindow, authWindow)
}

func limitByRealIP(attempts int, window time.Duration) func(next http.Handler) http.Handler {
	return httprate.Limit(
		attempts,
		window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"Too many attempts, try again later")
		}),
	)
}
