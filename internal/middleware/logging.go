package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseMeta records what the handler wrote so the access log can report it.
type responseMeta struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (m *responseMeta) WriteHeader(code int) {
	if m.code == 0 {
		m.code = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeta) Write(b []byte) (int, error) {
	if m.code == 0 {
		m.code = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the hijacker during websocket
// upgrades.
func (m *responseMeta) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs one line per request: method, path, status, response
// size, duration, and client IP. Server errors log at error level so they
// stand out without a separate alerting path.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			meta := &responseMeta{ResponseWriter: w}

			next.ServeHTTP(meta, r)

			if meta.code == 0 {
				meta.code = http.StatusOK
			}
			logger.Log(r.Context(), levelFor(meta.code), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", meta.code,
				"bytes", meta.bytes,
				"duration", time.Since(start),
				"remote", RealIP(r),
			)
		})
	}
}
