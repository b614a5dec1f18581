// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/mocks"
	"github.com/holomush/accounts/pkg/errutil"
)

func TestNewLoginService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		accounts    auth.AccountRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil account repository",
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "account repository is required",
		},
		{
			name:        "nil password hasher",
			accounts:    mocks.NewMockAccountRepository(t),
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewLoginService(tt.accounts, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_DEPENDENCY")
		})
	}
}

func TestLoginService_Authenticate(t *testing.T) {
	ctx := context.Background()
	account := &auth.Account{
		ID:           1,
		Email:        "ada@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
	}
	notFound := oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)

	t.Run("valid credentials return the account", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewLoginService(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", ctx, "ada@example.com").Return(account, nil)
		hasher.On("Verify", "secret", account.PasswordHash).Return(true, nil)

		got, err := svc.Authenticate(ctx, "ada@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, account, got)
	})

	t.Run("email is normalized before lookup", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewLoginService(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", ctx, "ada@example.com").Return(account, nil)
		hasher.On("Verify", "secret", account.PasswordHash).Return(true, nil)

		_, err = svc.Authenticate(ctx, "  Ada@Example.COM ", "secret")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewLoginService(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", ctx, "ada@example.com").Return(account, nil)
		hasher.On("Verify", "wrong", account.PasswordHash).Return(false, nil)

		got, err := svc.Authenticate(ctx, "ada@example.com", "wrong")
		require.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("unknown email still verifies a hash", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewLoginService(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFound)
		// Verify runs against a dummy hash so both paths cost the same.
		hasher.On("Verify", "secret", mock.AnythingOfType("string")).Return(false, nil)

		got, err := svc.Authenticate(ctx, "nobody@example.com", "secret")
		require.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, auth.ErrNotFound, "the lookup miss is not exposed")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		svc, err := auth.NewLoginService(accounts, fastHasher())
		require.NoError(t, err)

		hash, err := fastHasher().Hash("secret")
		require.NoError(t, err)
		accounts.On("GetByEmail", ctx, "ada@example.com").Return(&auth.Account{ID: 1, Email: "ada@example.com", PasswordHash: hash}, nil)
		accounts.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFound)

		_, wrongPassword := svc.Authenticate(ctx, "ada@example.com", "wrong")
		_, unknownEmail := svc.Authenticate(ctx, "nobody@example.com", "secret")
		require.Error(t, wrongPassword)
		require.Error(t, unknownEmail)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		assert.Equal(t, errutil.Code(wrongPassword), errutil.Code(unknownEmail))
		assert.Equal(t, auth.PublicMessage(wrongPassword), auth.PublicMessage(unknownEmail))
	})

	t.Run("store failure is not reported as bad credentials", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewLoginService(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", ctx, "ada@example.com").Return(nil, errors.New("connection refused"))

		_, err = svc.Authenticate(ctx, "ada@example.com", "secret")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, auth.CodeStoreUnavailable)
		assert.Equal(t, auth.MessageUnavailable, auth.PublicMessage(err))
	})

	t.Run("corrupt stored hash", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewLoginService(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", ctx, "ada@example.com").Return(account, nil)
		hasher.On("Verify", "secret", account.PasswordHash).Return(false, errors.New("invalid hash format"))

		_, err = svc.Authenticate(ctx, "ada@example.com", "secret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
		errutil.AssertErrorContext(t, err, "account_id", int64(1))
	})
}

func TestLoginService_Authenticate_RequiresInput(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{name: "empty email", email: "", password: "secret", field: "email"},
		{name: "blank email", email: "   ", password: "secret", field: "email"},
		{name: "empty password", email: "ada@example.com", password: "", field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: the repository and hasher must not be called.
			svc, err := auth.NewLoginService(mocks.NewMockAccountRepository(t), mocks.NewMockPasswordHasher(t))
			require.NoError(t, err)

			_, err = svc.Authenticate(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeInvalidArgument)
			errutil.AssertErrorContext(t, err, "field", tt.field)
		})
	}
}
