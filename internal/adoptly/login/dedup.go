package login

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"
)

// sharedCallTimeout bounds a backend call that no caller can cancel.
const sharedCallTimeout = 30 * time.Second

type identityResult struct {
	identity *Identity
}

type deduplicated struct {
	next  Authenticator
	group singleflight.Group
}

// Deduplicate wraps an Authenticator so that identical credentials submitted
// while a call is already in flight share its result instead of hitting the
// backend again. Each waiter receives its own copy of the identity.
func Deduplicate(next Authenticator) Authenticator {
	if next == nil {
		panic("login: authenticator is required")
	}
	return &deduplicated{next: next}
}

// Authenticate runs the shared call detached from any single caller's
// cancellation; each caller still stops waiting when its own ctx ends.
func (d *deduplicated) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(flightKey(creds), func() (any, error) {
		callCtx, cancel := context.WithTimeout(shared, sharedCallTimeout)
		defer cancel()
		identity, err := d.next.Authenticate(callCtx, creds)
		return identityResult{identity: identity}, err
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	out, _ := res.Val.(identityResult)
	if out.identity == nil {
		return nil, nil
	}
	copied := *out.identity
	return &copied, nil
}

// flightKey never embeds the raw password.
func flightKey(creds Credentials) string {
	sum := sha256.Sum256([]byte(creds.Username + "\x00" + creds.Password))
	return hex.EncodeToString(sum[:])
}
