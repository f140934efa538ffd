package service

import (
	"context"
	"strings"
	"time"

	"github.com/fjod/cosmic-backend/internal/auth"
	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/fjod/cosmic-backend/internal/repository"
	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 8

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	GenerateToken(user *domain.User) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type AuthService struct {
	users    repository.UserRepository
	tokens   TokenIssuer
	hasher   PasswordHasher
	validate *validator.Validate
	admins   map[string]struct{}
}

// NewAuthService grants admin rights to accounts registered with one of
// adminEmails. Matching is case-insensitive.
func NewAuthService(users repository.UserRepository, tokens TokenIssuer, hasher PasswordHasher, adminEmails ...string) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		validate: validator.New(),
		admins:   admins,
	}
}

// Register creates an account and returns a signed token for it.
func (s *AuthService) Register(ctx context.Context, fullname, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	if len(password) > auth.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	user := &domain.User{
		FullName:     strings.TrimSpace(fullname),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, ok := s.admins[email]; ok {
		user.Admin = true
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", err
	}

	return s.tokens.GenerateToken(user)
}

// Login checks the password and returns a signed token. Unknown accounts
// report repository.ErrUserNotFound, wrong passwords ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.GenerateToken(user)
}
