package service

import (
	"errors"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/fjod/cosmic-backend/internal/repository"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidProduct     = errors.New("price and stock must not be negative")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsValidation reports whether err is a caller input fault.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity, ErrInvalidProduct, ErrInvalidEmail, ErrWeakPassword,
		ErrPasswordTooLong, ErrInvalidCredentials, domain.ErrInvalidRef, repository.ErrDuplicateEmail,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err names a missing cart, line item, product
// or user.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrCartNotFound) ||
		errors.Is(err, repository.ErrItemNotFound) ||
		errors.Is(err, repository.ErrProductNotFound) ||
		errors.Is(err, repository.ErrUserNotFound)
}
