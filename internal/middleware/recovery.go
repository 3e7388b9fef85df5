package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"vowcraft/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				}
				if p, ok := httputil.GetPrincipal(r); ok {
					attrs = append(attrs, "user_id", p.UserID, "session_id", p.SessionID)
				}
				logger.ErrorContext(r.Context(), "handler panicked", attrs...)
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
