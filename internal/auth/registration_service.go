// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// RegisterParams are the inputs of a registration.
type RegisterParams struct {
	Email      string
	Password   string
	GivenName  string
	FamilyName string
}

// Registration is the outcome of a successful registration.
type Registration struct {
	Account *Account
	Roles   RoleSet

	// Bootstrapped is true for the first account ever registered, which
	// the host should route to initial setup.
	Bootstrapped bool
}

// RegistrationService creates accounts and assigns their initial roles.
type RegistrationService struct {
	accounts  AccountRepository
	roles     RoleRepository
	tx        Transactor
	hasher    PasswordHasher
	policy    BootstrapPolicy
	allowList *EmailAllowList
	logger    *slog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	accounts AccountRepository,
	roles RoleRepository,
	tx Transactor,
	hasher PasswordHasher,
	opts ...Option,
) (*RegistrationService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	if roles == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("role repository is required")
	}
	if tx == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	o := applyOptions(opts)
	return &RegistrationService{
		accounts:  accounts,
		roles:     roles,
		tx:        tx,
		hasher:    hasher,
		policy:    o.policy,
		allowList: o.allowList,
		logger:    o.logger,
	}, nil
}

// Register creates an account and assigns its bootstrap roles.
// Returns an error wrapping ErrDuplicateEmail if the email is taken; no
// account is created in that case.
func (s *RegistrationService) Register(ctx context.Context, params RegisterParams) (*Registration, error) {
	if err := ValidateEmail(NormalizeEmail(params.Email)); err != nil {
		return nil, err
	}
	if params.Password == "" {
		return nil, invalidArgument("password", "password cannot be empty")
	}
	if !s.allowList.Allows(params.Email) {
		return nil, invalidArgument("email", "registration is not open to this email address")
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	account, err := NewAccount(params.Email, hash, params.GivenName, params.FamilyName)
	if err != nil {
		return nil, err
	}

	var result *Registration
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.LockRegistrations(ctx); err != nil {
			return storeError("lock registrations", err)
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				return oops.Code(CodeDuplicateEmail).
					With("email", account.Email).
					Wrap(ErrDuplicateEmail)
			}
			return storeError("create account", err)
		}

		count, err := s.accounts.Count(ctx)
		if err != nil {
			return storeError("count accounts", err)
		}

		roles := s.policy.RolesFor(count)
		if err := s.roles.Set(ctx, account.ID, roles); err != nil {
			return storeError("assign roles", err)
		}

		result = &Registration{
			Account:      account,
			Roles:        roles,
			Bootstrapped: roles.IsAdmin() && count == 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Bootstrapped {
		s.logger.InfoContext(ctx, "bootstrap administrator registered",
			"account_id", result.Account.ID)
	}
	return result, nil
}
