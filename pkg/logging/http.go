package logging

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/zombar/viralrank/internal/tracing"
)

// requestAttrs are the fields every request record carries
func requestAttrs(r *http.Request) []slog.Attr {
	ctx := r.Context()
	return []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("trace_id", tracing.TraceIDFromContext(ctx)),
		slog.String("span_id", tracing.SpanIDFromContext(ctx)),
	}
}

// HTTPLoggingMiddleware logs one record per request, at error level for 5xx
// responses. Wrap it in the tracing middleware so the request span is in the
// context it reads.
func HTTPLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CaptureMetrics keeps Flusher and Hijacker on the wrapped writer
			m := httpsnoop.CaptureMetrics(next, w, r)

			level := slog.LevelInfo
			if m.Code >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := append(requestAttrs(r),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", m.Code),
				slog.Int64("bytes", m.Written),
				slog.Float64("duration_ms", float64(m.Duration.Microseconds())/1000),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)
			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}

// HTTPErrorLogger records the error behind a failed response
func HTTPErrorLogger(logger *slog.Logger, statusCode int, err error, r *http.Request) {
	attrs := append(requestAttrs(r),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
	)
	logger.LogAttrs(r.Context(), slog.LevelError, "http_error", attrs...)
}

// LogRequest logs an application event tied to a request
func LogRequest(logger *slog.Logger, r *http.Request, msg string, attrs ...slog.Attr) {
	logger.LogAttrs(r.Context(), slog.LevelInfo, msg, append(requestAttrs(r), attrs...)...)
}
