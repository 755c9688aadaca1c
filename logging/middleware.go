package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"tts-relay/utils"
)

// MaxLoggedPath is how much of a request path makes it into the log.
// TTS queries carry whole sentences of text.
const MaxLoggedPath = 100

// RequestLogger logs one line per request once the response is written:
// the truncated request target, then what was sent back.
func RequestLogger(l *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				attrs := []any{
					String("method", r.Method),
					String("path", utils.TruncatePath(r.URL.RequestURI(), MaxLoggedPath)),
					Int("status", status),
					String("content_type", ww.Header().Get("Content-Type")),
					Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				}
				if id := middleware.GetReqID(r.Context()); id != "" {
					attrs = append(attrs, String("request_id", id))
				}

				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelWarn
				}
				l.Log(r.Context(), level, "handled request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
