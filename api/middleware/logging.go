package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// quietPrefixes are probe and scrape paths logged at debug level only.
var quietPrefixes = []string{"/health/", "/metrics"}

// Logging writes one access line per request once the handler returns.
// Server errors are logged as warnings so they surface next to the error
// line the handler already wrote.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			rec := &responseRecorder{ResponseWriter: w}
			started := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			done := logg.WithFields(ctx, map[string]any{
				"status":      rec.statusCode(),
				"bytes":       rec.written,
				"duration_ms": time.Since(started).Milliseconds(),
			})
			switch {
			case rec.statusCode() >= http.StatusInternalServerError:
				logg.Warn(done, "request failed")
			case isQuietPath(r.URL.Path):
				logg.Debug(done, "request served")
			default:
				logg.Info(done, "request served")
			}
		})
	}
}

func isQuietPath(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
