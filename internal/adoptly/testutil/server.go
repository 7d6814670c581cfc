// Package testutil spins up the HTTP stack for integration tests.
package testutil

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"adoptly.org/adoptly/internal/adoptly/accounts"
	"adoptly.org/adoptly/internal/adoptly/httpserver"
	"adoptly.org/adoptly/internal/adoptly/login"
	"adoptly.org/adoptly/internal/adoptly/session"
)

// TestHashKey signs session cookies in tests.
var TestHashKey = []byte("0123456789abcdef0123456789abcdef")

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the login form.
func WithAuthenticator(auth login.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithRegistrar overrides the registrar used by the sign-up action.
func WithRegistrar(registrar httpserver.Registrar) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Registrar = registrar
	}
}

// WithPrefill sets the username rendered into a fresh login form.
func WithPrefill(username string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.PrefillUsername = username
	}
}

// WithEnvironment sets the environment label.
func WithEnvironment(env string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Environment = env
	}
}

// NewAccountService returns an in-memory accounts service seeded with the
// demo account. It uses the minimum bcrypt cost.
func NewAccountService(t testing.TB) *accounts.Service {
	t.Helper()

	svc := accounts.NewService(accounts.NewMemoryDirectory(), accounts.WithBcryptCost(bcrypt.MinCost))
	if err := svc.SeedDemo(context.Background()); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	return svc
}

// NewServer constructs an httptest server running the HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{HashKey: TestHashKey})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	svc := NewAccountService(t)

	cfg := httpserver.Config{
		Address:        ":0",
		Environment:    "Test",
		Authenticator:  svc,
		Registrar:      svc,
		Sessions:       sessions,
		CSRFHeaderName: "X-CSRF-Token",
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client with a cookie jar that does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
