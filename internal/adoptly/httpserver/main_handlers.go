package httpserver

import (
	"io"
	"net/http"

	"github.com/a-h/templ"

	custommw "adoptly.org/adoptly/internal/adoptly/httpserver/middleware"
	"adoptly.org/adoptly/internal/adoptly/templates/home"
)

// MainScreen greets the signed-in adopter or falls back to guest mode.
func MainScreen(w http.ResponseWriter, r *http.Request) {
	data := home.MainPageData{
		Guest:       true,
		CSRFToken:   custommw.CSRFTokenFromContext(r.Context()),
		Environment: custommw.EnvironmentFromContext(r.Context()),
		LogoutPath:  logoutPath,
		LoginPath:   loginPath,
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if user := sess.User(); user != nil {
			data.Guest = false
			data.Username = user.Username
			data.DisplayName = user.DisplayName
		}
	}
	templ.Handler(home.MainPage(data)).ServeHTTP(w, r)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}
