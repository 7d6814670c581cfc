package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"adoptly.org/adoptly/internal/adoptly/observability"
)

type csrfContextKey string

const csrfTokenContextKey csrfContextKey = "csrf.token"

// CSRFConfig controls where submitted tokens are read from.
type CSRFConfig struct {
	HeaderName string
	FieldName  string
}

// CSRF validates unsafe requests against the token held in the request
// session. It must run after Session. The token is accepted from the header
// (htmx) or the form field (plain HTML forms).
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-CSRF-Token"
	}
	fieldName := cfg.FieldName
	if fieldName == "" {
		fieldName = "csrf_token"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			sess, ok := SessionFromContext(r.Context())
			if !ok {
				logger.Error("csrf: no session on request", zap.String("path", r.URL.Path))
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}
			token, err := sess.EnsureCSRFToken()
			if err != nil {
				logger.Error("csrf: token generation failed", zap.Error(err))
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}

			if isUnsafeMethod(r.Method) {
				submitted := r.Header.Get(headerName)
				if submitted == "" {
					submitted = r.PostFormValue(fieldName)
				}
				if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
					logger.Warn("csrf token mismatch",
						zap.String("path", r.URL.Path),
						zap.Bool("submitted", submitted != ""),
					)
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in forms rendered for this
// request. Handlers that rotate the session should read the session directly.
func CSRFTokenFromContext(ctx context.Context) string {
	if sess, ok := SessionFromContext(ctx); ok {
		if token := sess.CSRFToken(); token != "" {
			return token
		}
	}
	if token, ok := ctx.Value(csrfTokenContextKey).(string); ok {
		return token
	}
	return ""
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
