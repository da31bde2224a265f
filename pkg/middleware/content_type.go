package middleware

import (
	"net/http"
	"path"
	"strings"

	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
)

// ContentTypeValidation requires a JSON body on writes. Paths listed in
// exempt may carry other media types, e.g. multipart uploads. An exempt entry
// is a path prefix or a path.Match pattern such as "/api/v1/items/*/files".
func ContentTypeValidation(log *logger.Logger, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r) && !isExempt(r.URL.Path, exempt) {
				contentType := extractContentType(r.Header.Get("Content-Type"))
				if contentType != "application/json" {
					log.Warn("Invalid Content-Type header",
						"request_id", RequestIDFromContext(r.Context()),
						"content_type", contentType,
						"path", r.URL.Path,
						"method", r.Method,
					)
					_ = httputil.WriteError(w, apperrors.UnsupportedMediaType("Content-Type must be application/json"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}

func isExempt(urlPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(urlPath, p) {
			return true
		}
		if ok, _ := path.Match(p, urlPath); ok {
			return true
		}
	}
	return false
}

func extractContentType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
