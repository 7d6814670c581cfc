package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"adoptly.org/adoptly/internal/adoptly/accounts"
	custommw "adoptly.org/adoptly/internal/adoptly/httpserver/middleware"
	"adoptly.org/adoptly/internal/adoptly/login"
	"adoptly.org/adoptly/internal/adoptly/observability"
	"adoptly.org/adoptly/internal/adoptly/templates/auth"
)

const (
	loginPath  = "/login"
	guestPath  = "/login/guest"
	signUpPath = "/signup"
	logoutPath = "/logout"
	mainPath   = "/main"

	messageTaken        = "already taken"
	messageSignUpFailed = "Sign up failed, try again or continue as guest"
	messageBadForm      = "The form could not be read, try again"
)

// Registrar creates accounts for the sign-up action.
type Registrar interface {
	Register(ctx context.Context, creds login.Credentials, displayName string) (*login.Identity, error)
}

type authHandlers struct {
	authenticator   login.Authenticator
	registrar       Registrar
	prefillUsername string
}

func newAuthHandlers(authenticator login.Authenticator, registrar Registrar, prefillUsername string) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	return &authHandlers{
		authenticator:   authenticator,
		registrar:       registrar,
		prefillUsername: prefillUsername,
	}
}

// newForm builds the per-request form. Every request to the login screen
// mounts it, so the visitor is signed out before anything renders.
func (h *authHandlers) newForm(w http.ResponseWriter, r *http.Request, opts ...login.Option) (*login.Form, *redirectNavigator) {
	sess, _ := custommw.SessionFromContext(r.Context())
	nav := newRedirectNavigator(w, r)
	opts = append([]login.Option{login.WithLogger(observability.FromContext(r.Context()))}, opts...)
	form := login.New(h.authenticator, sessionUserStore{sess: sess}, nav, opts...)
	form.Mount()
	return form, nav
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	var opts []login.Option
	if h.prefillUsername != "" {
		opts = append(opts, login.WithUsername(h.prefillUsername))
	}
	form, _ := h.newForm(w, r, opts...)

	data := h.buildLoginPageData(r, form.View())
	data.Message = messageForStatus(r.URL.Query().Get("status"))
	h.renderLoginPage(w, r, data, http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	form, nav := h.newForm(w, r)

	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	outcome := form.Submit(r.Context(), creds)
	if nav.Navigated() {
		return
	}

	status := http.StatusOK
	switch outcome.State {
	case login.StateValidationFailed:
		status = http.StatusUnprocessableEntity
	case login.StateAuthFailed:
		status = http.StatusUnauthorized
	case login.StateAuthSucceeded:
		// Navigation already happened; reaching here means the navigator
		// refused a second redirect.
		return
	}
	h.renderLoginPage(w, r, h.buildLoginPageData(r, form.View()), status)
}

func (h *authHandlers) ContinueAsGuest(w http.ResponseWriter, r *http.Request) {
	form, _ := h.newForm(w, r)
	form.ContinueAsGuest()
}

func (h *authHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	if h.registrar == nil {
		http.NotFound(w, r)
		return
	}
	logger := observability.FromContext(r.Context())
	sess, _ := custommw.SessionFromContext(r.Context())
	store := sessionUserStore{sess: sess}
	store.ClearUser()

	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	data := auth.LoginPageData{Username: creds.Username}
	identity, err := h.registrar.Register(r.Context(), creds, "")
	if err == nil && identity != nil {
		logger.Info("account registered", zap.String("username", identity.Username))
		store.SetUser(*identity)
		newRedirectNavigator(w, r).Replace(login.MainScreen)
		return
	}

	var fieldErrs login.FieldErrors
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &fieldErrs):
		data.FieldErrors = fieldErrs
		status = http.StatusUnprocessableEntity
	case errors.Is(err, accounts.ErrUsernameTaken):
		data.FieldErrors = map[string]string{login.FieldUsername: messageTaken}
		status = http.StatusConflict
	default:
		logger.Error("sign up failed", zap.String("username", strings.TrimSpace(creds.Username)), zap.Error(err))
		data.ErrorMessage = messageSignUpFailed
	}
	h.renderLoginPage(w, r, h.fillPaths(r, data), status)
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		sess.Destroy()
	}

	redirect := loginPath + "?status=logged_out"
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", redirect)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *authHandlers) readCredentials(w http.ResponseWriter, r *http.Request) (login.Credentials, bool) {
	if err := r.ParseForm(); err != nil {
		observability.FromContext(r.Context()).Warn("login form parse failed", zap.Error(err))
		data := h.fillPaths(r, auth.LoginPageData{ErrorMessage: messageBadForm})
		h.renderLoginPage(w, r, data, http.StatusBadRequest)
		return login.Credentials{}, false
	}
	return login.Credentials{
		Username: r.PostFormValue(login.FieldUsername),
		Password: r.PostFormValue(login.FieldPassword),
	}, true
}

func (h *authHandlers) buildLoginPageData(r *http.Request, view login.View) auth.LoginPageData {
	return h.fillPaths(r, auth.LoginPageData{
		Username:     view.Username,
		FieldErrors:  view.FieldErrors,
		ErrorMessage: view.ErrorMessage,
	})
}

func (h *authHandlers) fillPaths(r *http.Request, data auth.LoginPageData) auth.LoginPageData {
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())
	data.Environment = custommw.EnvironmentFromContext(r.Context())
	data.LoginPath = loginPath
	data.GuestPath = guestPath
	if h.registrar != nil {
		data.SignUpPath = signUpPath
	}
	return data
}

func (h *authHandlers) renderLoginPage(w http.ResponseWriter, r *http.Request, data auth.LoginPageData, status int) {
	component := auth.LoginPage(data)
	if custommw.IsHTMXRequest(r.Context()) {
		component = auth.LoginForm(data)
	}
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

func messageForStatus(status string) string {
	switch strings.TrimSpace(status) {
	case "logged_out":
		return "You have been logged out."
	case "expired":
		return "Your session expired, please log in again."
	default:
		return ""
	}
}
