package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const requestUserKey contextKey = "request_user"

// requestUser is filled in by SetUser further down the chain and read back by
// LoggingMiddleware once the handler returns.
type requestUser struct {
	mu sync.Mutex
	id string
}

func noteUser(ctx context.Context, userID string) {
	if ru, ok := ctx.Value(requestUserKey).(*requestUser); ok {
		ru.mu.Lock()
		ru.id = userID
		ru.mu.Unlock()
	}
}

func (ru *requestUser) userID() string {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	return ru.id
}

// responseWriter wraps http.ResponseWriter to capture status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (n int, err error) {
	n, err = w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// LoggingMiddleware logs each request with method, path, status, size and duration.
// 5xx responses are logged at error level. Bodies are never logged.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		ru := &requestUser{}
		r = r.WithContext(context.WithValue(r.Context(), requestUserKey, ru))
		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		if wrapped.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.status),
			slog.Int64("bytes", wrapped.written),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if id := ru.userID(); id != "" {
			attrs = append(attrs, slog.String("user_id", id))
		}
		logger.LogAttrs(r.Context(), level, "request", attrs...)
	})
}
