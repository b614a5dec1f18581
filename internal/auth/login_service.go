// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified when an account doesn't exist so both
// failure paths do the same work. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginService verifies account credentials.
type LoginService struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

// NewLoginService creates a new LoginService.
func NewLoginService(accounts AccountRepository, hasher PasswordHasher) (*LoginService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	return &LoginService{accounts: accounts, hasher: hasher}, nil
}

// Authenticate returns the account matching email and password.
// Unknown emails and wrong passwords both return an error wrapping
// ErrInvalidCredentials with the same code and message.
func (s *LoginService) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, invalidArgument("email", "email address cannot be empty")
	}
	if password == "" {
		return nil, invalidArgument("password", "password cannot be empty")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	targetHash := dummyPasswordHash
	switch {
	case err == nil:
		targetHash = account.PasswordHash
	case errors.Is(err, ErrNotFound):
		account = nil
	default:
		return nil, storeError("get account by email", err)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if account == nil {
		return nil, invalidCredentials()
	}
	if verifyErr != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID).
			Wrap(verifyErr)
	}
	if !valid {
		return nil, invalidCredentials()
	}
	return account, nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}
