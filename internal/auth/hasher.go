// Package auth implements password hashing, bearer tokens, login and the
// session guard every protected operation goes through.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/todo-api/internal/apperr"
)

// maxPasswordBytes is the input limit of bcrypt.
const maxPasswordBytes = 72

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash.
	// A malformed hash is reported as a mismatch.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost.
// Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", apperr.Validation("AUTH_EMPTY_PASSWORD", "password cannot be empty")
	}
	if len(password) > maxPasswordBytes {
		return "", apperr.Validation("AUTH_PASSWORD_TOO_LONG", "password must be at most 72 bytes")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("AUTH_PASSWORD_TOO_LONG", "password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var _ PasswordHasher = (*BcryptHasher)(nil)
