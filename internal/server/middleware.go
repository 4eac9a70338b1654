package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ContentSecurityPolicy admits the Mapbox GL script, styles, tiles and telemetry.
const ContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-eval' 'unsafe-inline' api.mapbox.com; " +
	"connect-src 'self' api.mapbox.com events.mapbox.com; " +
	"img-src 'self' data: blob: api.mapbox.com; " +
	"style-src 'self' 'unsafe-inline' api.mapbox.com; " +
	"worker-src blob:; child-src blob:;"

// PermissionsPolicy scopes geolocation to this origin and allowedOrigin. The
// camera stays same-origin.
func PermissionsPolicy(allowedOrigin string) string {
	if allowedOrigin == "" {
		return "geolocation=(self), camera=(self)"
	}
	return fmt.Sprintf("geolocation=(self %q), camera=(self)", allowedOrigin)
}

// SecurityHeaders sets the page security headers on every response.
func SecurityHeaders(allowedOrigin string) func(http.Handler) http.Handler {
	permissions := PermissionsPolicy(allowedOrigin)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Permissions-Policy", permissions)
			w.Header().Set("Content-Security-Policy", ContentSecurityPolicy)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}
