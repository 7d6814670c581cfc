package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "adoptly.org/adoptly/internal/adoptly/httpserver/middleware"
	"adoptly.org/adoptly/internal/adoptly/login"
	"adoptly.org/adoptly/internal/adoptly/observability"
	"adoptly.org/adoptly/public"
)

// Config holds runtime options for the HTTP server.
type Config struct {
	Address         string
	Environment     string
	Logger          *zap.Logger
	Authenticator   login.Authenticator
	Registrar       Registrar
	Sessions        custommw.SessionStore
	PrefillUsername string

	CSRFHeaderName string
	RequestTimeout time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Sessions == nil {
		panic("httpserver: session store is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(timeout))

	staticContent, err := public.StaticFS()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))
	router.Get("/healthz", Healthz)

	mountScreens(router, routeOptions{
		Auth: newAuthHandlers(cfg.Authenticator, cfg.Registrar, cfg.PrefillUsername),
		CSRF: custommw.CSRFConfig{
			HeaderName: cfg.CSRFHeaderName,
		},
		Environment: cfg.Environment,
		Sessions:    cfg.Sessions,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type routeOptions struct {
	Auth        *authHandlers
	CSRF        custommw.CSRFConfig
	Environment string
	Sessions    custommw.SessionStore
}

func mountScreens(router chi.Router, opts routeOptions) {
	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, loginPath, http.StatusFound)
		})
		r.Get(loginPath, opts.Auth.LoginForm)
		r.Post(loginPath, opts.Auth.LoginSubmit)
		r.Post(guestPath, opts.Auth.ContinueAsGuest)
		r.Post(signUpPath, opts.Auth.SignUp)
		r.Post(logoutPath, opts.Auth.Logout)
		r.Get(mainPath, MainScreen)
	})
}
