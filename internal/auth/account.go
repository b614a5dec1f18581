// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// Name field constraints.
const (
	MaxEmailLength = 254
	MaxNameLength  = 100
)

// Account represents a registered user.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	GivenName    string
	FamilyName   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account with a normalized email. The ID is
// zero until the AccountRepository assigns one.
func NewAccount(email, passwordHash, givenName, familyName string) (*Account, error) {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, invalidArgument("password", "password hash cannot be empty")
	}
	givenName = strings.TrimSpace(givenName)
	familyName = strings.TrimSpace(familyName)
	if err := validateName("given_name", givenName); err != nil {
		return nil, err
	}
	if err := validateName("family_name", familyName); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Account{
		Email:        normalized,
		PasswordHash: passwordHash,
		GivenName:    givenName,
		FamilyName:   familyName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// All stores compare normalized addresses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare, well-formed address.
func ValidateEmail(email string) error {
	if email == "" {
		return invalidArgument("email", "email address cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return invalidArgument("email", "email address is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalidArgument("email", "email address is not valid")
	}
	return nil
}

func validateName(field, name string) error {
	if name == "" {
		return invalidArgument(field, strings.ReplaceAll(field, "_", " ")+" cannot be empty")
	}
	if len(name) > MaxNameLength {
		return invalidArgument(field, strings.ReplaceAll(field, "_", " ")+" is too long")
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account and sets its ID.
	// Returns an error wrapping ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int64, error)

	// UpdatePassword replaces the password hash of an account.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// LockRegistrations blocks until no other transaction holds the
	// registration lock. The lock is released when the enclosing
	// transaction ends, so it must be called inside Transactor.InTransaction.
	LockRegistrations(ctx context.Context) error
}

// Transactor runs a function inside a unit of work. Repository calls made
// with the context handed to fn participate in it; the work is committed
// when fn returns nil and rolled back otherwise.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
