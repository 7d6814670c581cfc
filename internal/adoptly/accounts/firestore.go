package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultAccountsCollection = "accounts"

type accountDocument struct {
	ID           string    `firestore:"id"`
	Username     string    `firestore:"username"`
	DisplayName  string    `firestore:"displayName"`
	PasswordHash []byte    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// FirestoreDirectory persists accounts in a Firestore collection, one
// document per username.
type FirestoreDirectory struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreDirectory constructs a directory on the given collection.
// An empty collection name selects "accounts".
func NewFirestoreDirectory(client *firestore.Client, collection string) (*FirestoreDirectory, error) {
	if client == nil {
		return nil, errors.New("accounts: firestore client is required")
	}
	if collection == "" {
		collection = defaultAccountsCollection
	}
	return &FirestoreDirectory{client: client, collection: collection}, nil
}

// Lookup fetches the account document for username.
func (d *FirestoreDirectory) Lookup(ctx context.Context, username string) (Account, error) {
	key := NormalizeUsername(username)
	if !validDocumentID(key) {
		return Account{}, ErrAccountNotFound
	}
	snap, err := d.client.Collection(d.collection).Doc(key).Get(ctx)
	if err != nil {
		return Account{}, wrapFirestoreError("accounts.lookup", err)
	}
	var doc accountDocument
	if err := snap.DataTo(&doc); err != nil {
		return Account{}, fmt.Errorf("accounts.lookup: decode %s: %w", snap.Ref.ID, err)
	}
	return decodeAccount(doc, snap.Ref.ID), nil
}

// Create writes a new account document, failing when the username exists.
func (d *FirestoreDirectory) Create(ctx context.Context, account Account) error {
	key := NormalizeUsername(account.Username)
	if !validDocumentID(key) {
		return fmt.Errorf("accounts: username %q cannot be stored", key)
	}
	account.Username = key
	_, err := d.client.Collection(d.collection).Doc(key).Create(ctx, encodeAccount(account))
	if err != nil {
		return wrapFirestoreError("accounts.create", err)
	}
	return nil
}

// validDocumentID rejects keys Firestore cannot address as a single document.
func validDocumentID(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.Contains(key, "/")
}

func encodeAccount(acc Account) accountDocument {
	return accountDocument{
		ID:           acc.ID,
		Username:     acc.Username,
		DisplayName:  acc.DisplayName,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
	}
}

func decodeAccount(doc accountDocument, docID string) Account {
	username := doc.Username
	if username == "" {
		username = docID
	}
	return Account{
		ID:           doc.ID,
		Username:     username,
		DisplayName:  doc.DisplayName,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}
}

func wrapFirestoreError(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
