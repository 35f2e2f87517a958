package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
)

// Input limits, matching the users table columns.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 255
)

// UserStore defines the interface for user persistence.
//
// Lookups return an error wrapping apperr.ErrNotFound when no user matches,
// and CreateUser returns one wrapping apperr.ErrConflict when the username
// or email is taken.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) (int64, error)
}

// TokenIssuer produces bearer tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Service provides signup, login and account deletion.
type Service struct {
	users     UserStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	dummyHash string
}

// NewService creates a new Service.
func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token issuer is required")
	}

	// Verified against when the username is unknown, so a miss costs the
	// same as a wrong password.
	dummy, err := hasher.Hash("dummy-password-never-matches")
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").With("operation", "hash dummy password").Wrap(err)
	}

	return &Service{users: users, hasher: hasher, tokens: tokens, dummyHash: dummy}, nil
}

// Signup validates the input, hashes the password and creates the user.
// Uniqueness is decided by the store's constraints.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, username, email, hash)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// Authenticate checks a username/password pair.
// Unknown user, wrong password and inactive account are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	target := s.dummyHash
	if user != nil {
		target = user.PasswordHash
	}
	valid := s.hasher.Verify(password, target)

	if user == nil || !valid || !user.IsActive {
		return nil, invalidCredentials()
	}
	return user, nil
}

// Login authenticates and issues a bearer token whose subject is the username.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return token, nil
}

// DeleteAccount removes the user and, by cascade, all of their todos.
// It returns the number of todos removed.
func (s *Service) DeleteAccount(ctx context.Context, user *models.User) (int64, error) {
	n, err := s.users.DeleteUser(ctx, user.ID)
	if err != nil {
		return 0, oops.Code("AUTH_DELETE_ACCOUNT_FAILED").
			With("user_id", user.ID).
			Wrap(err)
	}
	return n, nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		Public("incorrect username or password").
		Wrap(apperr.ErrUnauthorized)
}

// ValidateUsername checks that a username is present and fits the column.
// Usernames are case-sensitive and stored verbatim.
func ValidateUsername(username string) error {
	if username == "" {
		return apperr.Validation("AUTH_INVALID_USERNAME", "username is required")
	}
	if strings.TrimSpace(username) != username {
		return apperr.Validation("AUTH_INVALID_USERNAME", "username must not start or end with whitespace")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return apperr.Validation("AUTH_INVALID_USERNAME", "username must be at most 50 characters")
	}
	return nil
}

// ValidateEmail checks that email is a bare RFC 5322 address.
func ValidateEmail(email string) error {
	if email == "" {
		return apperr.Validation("AUTH_INVALID_EMAIL", "email is required")
	}
	if len(email) > MaxEmailLength {
		return apperr.Validation("AUTH_INVALID_EMAIL", "email must be at most 255 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return apperr.Validation("AUTH_INVALID_EMAIL", "email is not a valid address")
	}
	return nil
}
