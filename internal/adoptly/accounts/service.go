package accounts

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"

	"adoptly.org/adoptly/internal/adoptly/login"
)

const (
	// DemoUsername and DemoPassword are the sample credentials the login form
	// is prefilled with in development.
	DemoUsername = "A00000001"
	DemoPassword = "password01"

	// MessagePasswordTooLong is reported for passwords bcrypt cannot hash.
	MessagePasswordTooLong = "must be at most 72 bytes"
)

// Service authenticates and registers accounts against a Directory.
type Service struct {
	dir       Directory
	cost      int
	now       func() time.Time
	meter     metric.Meter
	telemetry telemetry
	sanitizer *bluemonday.Policy
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithClock overrides the clock used to stamp new accounts.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMeter overrides the meter used for authentication counters.
func WithMeter(m metric.Meter) ServiceOption {
	return func(s *Service) {
		s.meter = m
	}
}

// NewService constructs a Service backed by dir.
func NewService(dir Directory, opts ...ServiceOption) *Service {
	if dir == nil {
		panic("accounts: directory is required")
	}
	s := &Service{
		dir:       dir,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.telemetry = newTelemetry(s.meter)
	return s
}

// Authenticate implements login.Authenticator. Unknown usernames and wrong
// passwords produce a nil identity and a nil error; only backend failures
// surface as errors.
func (s *Service) Authenticate(ctx context.Context, creds login.Credentials) (_ *login.Identity, err error) {
	ctx, span := startSpan(ctx, "accounts.Authenticate", creds.Username)
	defer func() { endSpan(span, err) }()

	acc, err := s.dir.Lookup(ctx, creds.Username)
	if errors.Is(err, ErrAccountNotFound) {
		s.telemetry.recordAttempt(ctx, outcomeNotFound)
		return nil, nil
	}
	if err != nil {
		s.telemetry.recordAttempt(ctx, outcomeError)
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			s.telemetry.recordAttempt(ctx, outcomeMismatch)
			return nil, nil
		}
		s.telemetry.recordAttempt(ctx, outcomeError)
		return nil, fmt.Errorf("compare password: %w", err)
	}
	s.telemetry.recordAttempt(ctx, outcomeSuccess)
	return identityFor(acc), nil
}

// Register creates a new account for the credentials and returns its identity.
// The display name is stripped of markup and defaults to the username.
func (s *Service) Register(ctx context.Context, creds login.Credentials, displayName string) (_ *login.Identity, err error) {
	ctx, span := startSpan(ctx, "accounts.Register", strings.TrimSpace(creds.Username))
	defer func() { endSpan(span, err) }()

	if errs := login.Validate(creds); !errs.Valid() {
		return nil, errs
	}
	creds = creds.Trimmed()

	acc, err := s.NewAccount(creds.Username, creds.Password, displayName)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, login.FieldErrors{login.FieldPassword: MessagePasswordTooLong}
	}
	if err != nil {
		return nil, err
	}
	if err := s.dir.Create(ctx, acc); err != nil {
		return nil, err
	}
	return identityFor(acc), nil
}

// NewAccount hashes the password and builds an Account without storing it.
func (s *Service) NewAccount(username, password, displayName string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	username = NormalizeUsername(username)
	displayName = html.UnescapeString(s.sanitizer.Sanitize(displayName))
	if strings.TrimSpace(displayName) == "" {
		displayName = username
	}
	now := s.now().UTC()
	return Account{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
	}, nil
}

// SeedDemo stores the demo account when it is missing.
func (s *Service) SeedDemo(ctx context.Context) error {
	acc, err := s.NewAccount(DemoUsername, DemoPassword, "Demo Adopter")
	if err != nil {
		return err
	}
	if err := s.dir.Create(ctx, acc); err != nil && !errors.Is(err, ErrUsernameTaken) {
		return fmt.Errorf("seed demo account: %w", err)
	}
	return nil
}

func identityFor(acc Account) *login.Identity {
	return &login.Identity{
		ID:          acc.ID,
		Username:    acc.Username,
		DisplayName: acc.DisplayName,
	}
}
