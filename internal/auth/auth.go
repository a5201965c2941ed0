// Package auth implements password login and bearer-token authentication
// for the REST API.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/store"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password.
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	// ErrInvalidToken is returned by Authenticate for any unusable token.
	ErrInvalidToken = errors.New("invalid token")
)

// UserStore is the part of store.Store the authenticator needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Authenticator exchanges credentials for tokens and tokens for users.
type Authenticator struct {
	users  UserStore
	hasher *BcryptHasher
	tokens *TokenService
}

func NewAuthenticator(users UserStore, hasher *BcryptHasher, tokens *TokenService) *Authenticator {
	return &Authenticator{users: users, hasher: hasher, tokens: tokens}
}

// Login verifies username and password and returns a signed token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	u, err := a.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if err := a.hasher.Verify(password, u.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.tokens.Issue(u.ID, u.Username)
}

// Authenticate resolves a token to the user it was issued to. A token for a
// deleted user is rejected.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	u, err := a.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// Token returns a token for an existing user without a password check.
// Used by the CLI to mint tokens for local accounts.
func (a *Authenticator) Token(u *models.User) (string, error) {
	return a.tokens.Issue(u.ID, u.Username)
}

// HashPassword hashes password with the authenticator's hasher.
func (a *Authenticator) HashPassword(password string) (string, error) {
	return a.hasher.Hash(password)
}
