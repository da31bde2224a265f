package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
)

// Recovery turns a handler panic into a 500 that carries the request id.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := RequestIDFromContext(r.Context())
					log.Error("Panic recovered",
						"request_id", requestID,
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					appErr := apperrors.Internal("Internal server error", nil)
					if requestID != "" {
						appErr = appErr.WithDetails(map[string]any{"request_id": requestID})
					}
					_ = httputil.WriteError(w, appErr)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
