package login_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adoptly.org/adoptly/internal/adoptly/login"
)

type recordingStore struct {
	clears int
	users  []login.Identity
}

func (s *recordingStore) ClearUser()               { s.clears++ }
func (s *recordingStore) SetUser(id login.Identity) { s.users = append(s.users, id) }

type navCall struct {
	kind   string
	screen login.Screen
}

type recordingNavigator struct {
	calls []navCall
}

func (n *recordingNavigator) Replace(s login.Screen)  { n.calls = append(n.calls, navCall{"replace", s}) }
func (n *recordingNavigator) Navigate(s login.Screen) { n.calls = append(n.calls, navCall{"navigate", s}) }

type stubAuthenticator struct {
	calls    int32
	identity *login.Identity
	err      error
	seen     []login.Credentials
	mu       sync.Mutex
}

func (a *stubAuthenticator) Authenticate(_ context.Context, creds login.Credentials) (*login.Identity, error) {
	atomic.AddInt32(&a.calls, 1)
	a.mu.Lock()
	a.seen = append(a.seen, creds)
	a.mu.Unlock()
	return a.identity, a.err
}

func newForm(t *testing.T, auth login.Authenticator) (*login.Form, *recordingStore, *recordingNavigator) {
	t.Helper()
	store := &recordingStore{}
	nav := &recordingNavigator{}
	return login.New(auth, store, nav), store, nav
}

var demoIdentity = &login.Identity{ID: "01J0000000000000000000DEMO", Username: "A00000001", DisplayName: "Demo Adopter"}

func TestMountClearsSessionOnce(t *testing.T) {
	t.Parallel()

	form, store, nav := newForm(t, &stubAuthenticator{})
	require.False(t, form.Mounted())

	form.Mount()
	form.Mount()

	require.True(t, form.Mounted())
	require.Equal(t, 1, store.clears)
	require.Empty(t, nav.calls)
}

func TestSubmitRejectsMissingFieldsWithoutAuthenticating(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		creds   login.Credentials
		missing []string
	}{
		"empty username": {
			creds:   login.Credentials{Username: "", Password: "password01"},
			missing: []string{login.FieldUsername},
		},
		"whitespace username": {
			creds:   login.Credentials{Username: "  \t ", Password: "password01"},
			missing: []string{login.FieldUsername},
		},
		"whitespace password": {
			creds:   login.Credentials{Username: "A00000001", Password: "   "},
			missing: []string{login.FieldPassword},
		},
		"both empty": {
			creds:   login.Credentials{},
			missing: []string{login.FieldUsername, login.FieldPassword},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			auth := &stubAuthenticator{identity: demoIdentity}
			form, store, nav := newForm(t, auth)

			outcome := form.Submit(context.Background(), tc.creds)

			require.Equal(t, login.StateValidationFailed, outcome.State)
			require.Nil(t, outcome.Identity)
			require.Zero(t, atomic.LoadInt32(&auth.calls))
			require.Empty(t, store.users)
			require.Empty(t, nav.calls)

			view := form.View()
			require.Len(t, view.FieldErrors, len(tc.missing))
			for _, field := range tc.missing {
				require.Equal(t, login.MessageRequired, view.FieldErrors[field])
			}
			require.False(t, view.LoginError)
		})
	}
}

func TestSubmitSuccessStoresIdentityAndReplacesOnce(t *testing.T) {
	t.Parallel()

	auth := &stubAuthenticator{identity: demoIdentity}
	form, store, nav := newForm(t, auth)
	form.Mount()

	outcome := form.Submit(context.Background(), login.Credentials{Username: "A00000001", Password: "password01"})

	require.Equal(t, login.StateAuthSucceeded, outcome.State)
	require.Equal(t, demoIdentity, outcome.Identity)
	require.Equal(t, []login.Identity{*demoIdentity}, store.users)
	require.Equal(t, []navCall{{"replace", login.MainScreen}}, nav.calls)
	require.False(t, form.View().LoginError)
	require.Empty(t, form.View().ErrorMessage)
}

func TestSubmitPassesTrimmedCredentials(t *testing.T) {
	t.Parallel()

	auth := &stubAuthenticator{identity: demoIdentity}
	form, _, _ := newForm(t, auth)

	form.Submit(context.Background(), login.Credentials{Username: "  A00000001 ", Password: " password01\n"})

	require.Equal(t, []login.Credentials{{Username: "A00000001", Password: "password01"}}, auth.seen)
}

func TestSubmitFailureSetsFlagWithoutNavigating(t *testing.T) {
	t.Parallel()

	tests := map[string]*stubAuthenticator{
		"nil identity":  {},
		"backend error": {err: errors.New("backend unavailable")},
	}

	for name, auth := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			form, store, nav := newForm(t, auth)
			outcome := form.Submit(context.Background(), login.Credentials{Username: "A00000001", Password: "wrong"})

			require.Equal(t, login.StateAuthFailed, outcome.State)
			require.Nil(t, outcome.Identity)
			require.Empty(t, store.users)
			require.Empty(t, nav.calls)

			view := form.View()
			require.True(t, view.LoginError)
			require.Equal(t, login.LoginErrorMessage, view.ErrorMessage)
			require.Empty(t, view.FieldErrors)
		})
	}
}

func TestRepeatedFailedSubmitsDoNotAccumulate(t *testing.T) {
	t.Parallel()

	form, _, nav := newForm(t, &stubAuthenticator{})

	for i := 0; i < 3; i++ {
		form.Submit(context.Background(), login.Credentials{Username: "A00000001", Password: "nope"})
	}
	authFailed := form.View()
	require.Equal(t, login.StateAuthFailed, authFailed.State)
	require.Empty(t, authFailed.FieldErrors)

	for i := 0; i < 3; i++ {
		form.Submit(context.Background(), login.Credentials{Username: "", Password: ""})
	}
	validationFailed := form.View()
	require.Equal(t, login.StateValidationFailed, validationFailed.State)
	require.Len(t, validationFailed.FieldErrors, 2)
	require.False(t, validationFailed.LoginError, "a fresh submit resets the login error flag")
	require.Empty(t, nav.calls)
}

func TestContinueAsGuestIgnoresFormState(t *testing.T) {
	t.Parallel()

	auth := &stubAuthenticator{}
	form, store, nav := newForm(t, auth)
	form.Submit(context.Background(), login.Credentials{})

	form.ContinueAsGuest()

	require.Equal(t, []navCall{{"navigate", login.MainScreen}}, nav.calls)
	require.Zero(t, atomic.LoadInt32(&auth.calls))
	require.Empty(t, store.users)
}

func TestViewReturnsCopy(t *testing.T) {
	t.Parallel()

	form, _, _ := newForm(t, &stubAuthenticator{})
	form.Submit(context.Background(), login.Credentials{})

	view := form.View()
	view.FieldErrors[login.FieldUsername] = "mutated"

	require.Equal(t, login.MessageRequired, form.View().FieldErrors[login.FieldUsername])
}

func TestWithUsernamePrefills(t *testing.T) {
	t.Parallel()

	form := login.New(&stubAuthenticator{}, &recordingStore{}, &recordingNavigator{}, login.WithUsername("A00000001"))

	view := form.View()
	require.Equal(t, "A00000001", view.Username)
	require.Equal(t, login.StateIdle, view.State)
}

func TestDeduplicateSharesInFlightCalls(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls int32
	slow := login.AuthenticatorFunc(func(_ context.Context, _ login.Credentials) (*login.Identity, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return demoIdentity, nil
	})
	auth := login.Deduplicate(slow)
	creds := login.Credentials{Username: "A00000001", Password: "password01"}

	var wg sync.WaitGroup
	results := make([]*login.Identity, 4)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = auth.Authenticate(context.Background(), creds)
		}(i)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i, id := range results {
		require.NoError(t, errs[i])
		require.Equal(t, demoIdentity, id)
	}
	require.NotSame(t, results[0], results[1])
}

func TestDeduplicateSurvivesFirstCallerCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls int32
	slow := login.AuthenticatorFunc(func(ctx context.Context, _ login.Credentials) (*login.Identity, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
			return demoIdentity, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	auth := login.Deduplicate(slow)
	creds := login.Credentials{Username: "A00000001", Password: "password01"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := auth.Authenticate(firstCtx, creds)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	type result struct {
		id  *login.Identity
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, err := auth.Authenticate(context.Background(), creds)
		second <- result{id: id, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, demoIdentity, got.id)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDeduplicatePropagatesFailureSentinel(t *testing.T) {
	t.Parallel()

	auth := login.Deduplicate(&stubAuthenticator{})
	id, err := auth.Authenticate(context.Background(), login.Credentials{Username: "x", Password: "y"})

	require.NoError(t, err)
	require.Nil(t, id)
}
