// Package login implements the login form flow: schema validation,
// authentication, session hand-off and navigation to the main screen.
package login

import (
	"context"

	"go.uber.org/zap"
)

// Screen names a navigation destination.
type Screen string

const (
	// MainScreen is the landing screen after login or guest bypass.
	MainScreen Screen = "MainNavigation"
	// LoginScreen is the login form itself.
	LoginScreen Screen = "LogIn"
)

// LoginErrorMessage is the fixed banner shown after a failed authentication.
const LoginErrorMessage = "Login error, try again or continue as guest"

// Identity is the authenticated user handed to the session store. The form
// treats it as opaque.
type Identity struct {
	ID          string
	Username    string
	DisplayName string
}

// Authenticator resolves credentials into an identity. A nil identity with a
// nil error is the failure sentinel; a non-nil error is treated as a failure
// as well and logged.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Identity, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, creds Credentials) (*Identity, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	return f(ctx, creds)
}

// SessionStore holds the identity for the current visitor.
type SessionStore interface {
	ClearUser()
	SetUser(Identity)
}

// Navigator moves the visitor between screens. Replace discards the current
// screen, Navigate pushes on top of it.
type Navigator interface {
	Replace(Screen)
	Navigate(Screen)
}

// State enumerates where a form is after the latest submit attempt.
type State int

const (
	StateIdle State = iota
	StateValidationFailed
	StateAuthFailed
	StateAuthSucceeded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidationFailed:
		return "validation_failed"
	case StateAuthFailed:
		return "auth_failed"
	case StateAuthSucceeded:
		return "auth_succeeded"
	default:
		return "unknown"
	}
}

// Outcome is the result of one submit attempt. Identity is only set when
// State is StateAuthSucceeded.
type Outcome struct {
	State    State
	Identity *Identity
}

// View is the render state of a form.
type View struct {
	Username     string
	FieldErrors  FieldErrors
	LoginError   bool
	ErrorMessage string
	State        State
}

// Option customises a Form.
type Option func(*Form)

// WithLogger sets the logger used for authentication failures.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithUsername prefills the username field.
func WithUsername(username string) Option {
	return func(f *Form) {
		f.username = username
	}
}

// Form is one instance of the login screen. Instances are not safe for
// concurrent use; the HTTP layer builds one per request.
type Form struct {
	auth   Authenticator
	store  SessionStore
	nav    Navigator
	logger *zap.Logger

	mounted     bool
	username    string
	fieldErrors FieldErrors
	loginError  bool
	state       State
}

// New constructs a Form wired to its collaborators.
func New(auth Authenticator, store SessionStore, nav Navigator, opts ...Option) *Form {
	if auth == nil {
		panic("login: authenticator is required")
	}
	if store == nil {
		panic("login: session store is required")
	}
	if nav == nil {
		panic("login: navigator is required")
	}
	f := &Form{
		auth:        auth,
		store:       store,
		nav:         nav,
		logger:      zap.NewNop(),
		fieldErrors: FieldErrors{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Mount clears any prior session. Only the first call per instance has an
// effect, and it must happen before the first render.
func (f *Form) Mount() {
	if f.mounted {
		return
	}
	f.mounted = true
	f.store.ClearUser()
}

// Mounted reports whether Mount has run.
func (f *Form) Mounted() bool {
	return f.mounted
}

// Submit validates the credentials and, when they pass, authenticates them.
// Success stores the identity and replaces the screen with MainScreen;
// failure sets the login error flag and stays put.
func (f *Form) Submit(ctx context.Context, creds Credentials) Outcome {
	f.username = creds.Username
	f.fieldErrors = Validate(creds)
	f.loginError = false

	if !f.fieldErrors.Valid() {
		f.state = StateValidationFailed
		return Outcome{State: f.state}
	}

	trimmed := creds.Trimmed()
	identity, err := f.auth.Authenticate(ctx, trimmed)
	if err != nil {
		f.logger.Error("authentication backend failed",
			zap.String("username", trimmed.Username),
			zap.Error(err),
		)
		identity = nil
	}
	if identity == nil {
		f.loginError = true
		f.state = StateAuthFailed
		f.logger.Info("login rejected", zap.String("username", trimmed.Username))
		return Outcome{State: f.state}
	}

	f.store.SetUser(*identity)
	f.state = StateAuthSucceeded
	f.nav.Replace(MainScreen)
	return Outcome{State: f.state, Identity: identity}
}

// ContinueAsGuest sends the visitor to MainScreen without validating or
// authenticating anything.
func (f *Form) ContinueAsGuest() {
	f.nav.Navigate(MainScreen)
}

// View returns the current render state.
func (f *Form) View() View {
	errs := make(FieldErrors, len(f.fieldErrors))
	for k, v := range f.fieldErrors {
		errs[k] = v
	}
	v := View{
		Username:    f.username,
		FieldErrors: errs,
		LoginError:  f.loginError,
		State:       f.state,
	}
	if f.loginError {
		v.ErrorMessage = LoginErrorMessage
	}
	return v
}
