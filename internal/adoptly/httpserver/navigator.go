package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	custommw "adoptly.org/adoptly/internal/adoptly/httpserver/middleware"
	"adoptly.org/adoptly/internal/adoptly/login"
	"adoptly.org/adoptly/internal/adoptly/observability"
	appsession "adoptly.org/adoptly/internal/adoptly/session"
)

// screenPaths maps navigation destinations to routes.
var screenPaths = map[login.Screen]string{
	login.MainScreen:  "/main",
	login.LoginScreen: "/login",
}

// redirectNavigator turns navigation calls into HTTP redirects. Only the
// first call writes a response.
type redirectNavigator struct {
	w      http.ResponseWriter
	r      *http.Request
	target string
}

var _ login.Navigator = (*redirectNavigator)(nil)

func newRedirectNavigator(w http.ResponseWriter, r *http.Request) *redirectNavigator {
	return &redirectNavigator{w: w, r: r}
}

// Replace discards the current screen. htmx clients get a full page load
// through HX-Redirect so the login screen leaves their history.
func (n *redirectNavigator) Replace(screen login.Screen) {
	n.redirect(screen, "HX-Redirect")
}

// Navigate pushes the destination. htmx clients get HX-Location, which keeps
// the current screen in their history.
func (n *redirectNavigator) Navigate(screen login.Screen) {
	n.redirect(screen, "HX-Location")
}

// Navigated reports whether a redirect has been written.
func (n *redirectNavigator) Navigated() bool {
	return n.target != ""
}

func (n *redirectNavigator) redirect(screen login.Screen, htmxHeader string) {
	if n.Navigated() {
		observability.FromContext(n.r.Context()).Warn("duplicate navigation ignored",
			zap.String("screen", string(screen)),
			zap.String("previous", n.target),
		)
		return
	}
	target, ok := screenPaths[screen]
	if !ok {
		target = "/"
	}
	n.target = target

	if custommw.IsHTMXRequest(n.r.Context()) {
		n.w.Header().Set(htmxHeader, target)
		n.w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(n.w, n.r, target, http.StatusSeeOther)
}

// sessionUserStore exposes the request session as a login.SessionStore.
type sessionUserStore struct {
	sess *appsession.Session
}

var _ login.SessionStore = sessionUserStore{}

func (s sessionUserStore) ClearUser() {
	if s.sess != nil {
		s.sess.ClearUser()
	}
}

func (s sessionUserStore) SetUser(identity login.Identity) {
	if s.sess == nil {
		return
	}
	s.sess.SetUser(&appsession.User{
		ID:          identity.ID,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
	})
}
