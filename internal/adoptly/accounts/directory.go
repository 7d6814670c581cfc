// Package accounts stores adopter accounts and verifies their passwords.
package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAccountNotFound is returned when no account matches the username.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUsernameTaken is returned when creating an account whose username exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// Account is a stored adopter account.
type Account struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Directory looks up and creates accounts keyed by username.
type Directory interface {
	Lookup(ctx context.Context, username string) (Account, error)
	Create(ctx context.Context, account Account) error
}

// NormalizeUsername trims the username. Case is significant.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// MemoryDirectory keeps accounts in process memory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryDirectory returns a directory pre-populated with the supplied accounts.
func NewMemoryDirectory(seed ...Account) *MemoryDirectory {
	d := &MemoryDirectory{accounts: make(map[string]Account, len(seed))}
	for _, acc := range seed {
		key := NormalizeUsername(acc.Username)
		if key == "" {
			continue
		}
		acc.Username = key
		d.accounts[key] = cloneAccount(acc)
	}
	return d
}

// Lookup returns the account stored under username.
func (d *MemoryDirectory) Lookup(ctx context.Context, username string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.accounts[NormalizeUsername(username)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return cloneAccount(acc), nil
}

// Create stores a new account, rejecting duplicates.
func (d *MemoryDirectory) Create(ctx context.Context, account Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := NormalizeUsername(account.Username)
	if key == "" {
		return errors.New("accounts: username is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[key]; exists {
		return ErrUsernameTaken
	}
	account.Username = key
	d.accounts[key] = cloneAccount(account)
	return nil
}

// Len reports the number of stored accounts.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}

func cloneAccount(acc Account) Account {
	if acc.PasswordHash != nil {
		acc.PasswordHash = append([]byte(nil), acc.PasswordHash...)
	}
	return acc
}
