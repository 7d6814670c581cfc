package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"

	"adoptly.org/adoptly/internal/adoptly/observability"
	appsession "adoptly.org/adoptly/internal/adoptly/session"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "adoptly.session"

// SessionStore abstracts the session manager for middleware integration.
type SessionStore interface {
	Load(*http.Request) (*appsession.Session, error)
	New() *appsession.Session
	Save(http.ResponseWriter, *appsession.Session) error
	Destroy(http.ResponseWriter)
}

// Session attaches the decoded session to the request context and persists
// it back to the client cookie. The cookie is written just before the
// response header so redirects carry it.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			sess, err := store.Load(r)
			if errors.Is(err, appsession.ErrExpired) {
				logger.Info("session expired: resetting")
				store.Destroy(w)
				sess = store.New()
			} else if err != nil || sess == nil {
				if err != nil {
					logger.Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}

			var once sync.Once
			persist := func() {
				once.Do(func() {
					if err := store.Save(w, sess); err != nil {
						logger.Error("session save failed", zap.Error(err))
					}
				})
			}

			wrapped := httpsnoop.Wrap(w, httpsnoop.Hooks{
				WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
					return func(code int) {
						persist()
						next(code)
					}
				},
				Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
					return func(b []byte) (int, error) {
						persist()
						return next(b)
					}
				},
				ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
					return func(src io.Reader) (int64, error) {
						persist()
						return next(src)
					}
				},
			})

			ctx := context.WithValue(r.Context(), requestSessionKey, sess)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			persist()
		})
	}
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*appsession.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*appsession.Session)
	return sess, ok && sess != nil
}
