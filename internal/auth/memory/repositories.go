// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// AccountRepository implements auth.AccountRepository in memory.
type AccountRepository struct {
	s *Store
}

// Create stores a new account and assigns the next ID.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").Wrap(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := auth.NormalizeEmail(account.Email)
	if _, taken := r.s.byEmail[email]; taken {
		return oops.Code("ACCOUNT_DUPLICATE_EMAIL").With("email", email).Wrap(auth.ErrDuplicateEmail)
	}

	r.s.nextID++
	account.ID = r.s.nextID
	account.Email = email
	stored := *account
	r.s.accounts[stored.ID] = &stored
	r.s.byEmail[email] = stored.ID

	onRollback(ctx, func() {
		delete(r.s.accounts, stored.ID)
		delete(r.s.byEmail, email)
	})
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id int64) (*auth.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	found := *account
	return &found, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	found := *r.s.accounts[id]
	return &found, nil
}

// Count returns the number of accounts.
func (r *AccountRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.accounts)), nil
}

// UpdatePassword replaces the password hash of an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	prevHash, prevUpdated := account.PasswordHash, account.UpdatedAt
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()

	onRollback(ctx, func() {
		account.PasswordHash = prevHash
		account.UpdatedAt = prevUpdated
	})
	return nil
}

// LockRegistrations is a no-op: Store transactions are already serialized.
func (r *AccountRepository) LockRegistrations(_ context.Context) error {
	return nil
}

// RoleRepository implements auth.RoleRepository in memory.
type RoleRepository struct {
	s *Store
}

// Get returns the roles assigned to an account.
func (r *RoleRepository) Get(_ context.Context, accountID int64) (auth.RoleSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return auth.NewRoleSet(r.s.roles[accountID]...), nil
}

// Set replaces the roles assigned to an account.
func (r *RoleRepository) Set(ctx context.Context, accountID int64, roles auth.RoleSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[accountID]; !ok {
		return oops.Code("ROLES_ACCOUNT_NOT_FOUND").With("account_id", accountID).Wrap(auth.ErrNotFound)
	}
	prev, had := r.s.roles[accountID]
	r.s.roles[accountID] = auth.NewRoleSet(roles...)

	onRollback(ctx, func() {
		if had {
			r.s.roles[accountID] = prev
		} else {
			delete(r.s.roles, accountID)
		}
	})
	return nil
}

// TokenRepository implements auth.TokenRepository in memory.
type TokenRepository struct {
	s *Store
}

// Create stores a new token.
func (r *TokenRepository) Create(ctx context.Context, token *auth.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.byHash[token.TokenHash]; exists {
		return oops.Code("TOKEN_CREATE_FAILED").Errorf("token hash already exists")
	}
	stored := *token
	r.s.tokens[stored.ID] = &stored
	r.s.byHash[stored.TokenHash] = stored.ID

	onRollback(ctx, func() {
		delete(r.s.tokens, stored.ID)
		delete(r.s.byHash, stored.TokenHash)
	})
	return nil
}

// GetByHash retrieves a token by its hash.
func (r *TokenRepository) GetByHash(_ context.Context, tokenHash string) (*auth.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	found := *r.s.tokens[id]
	return &found, nil
}

// MarkRedeemed moves an issued token to redeemed.
func (r *TokenRepository) MarkRedeemed(ctx context.Context, id ulid.ULID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.tokens[id]
	if !ok {
		return oops.Code("TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if token.State() != auth.TokenIssued {
		return oops.Code("TOKEN_SPENT").With("id", id.String()).Wrap(auth.ErrTokenSpent)
	}
	redeemedAt := at
	token.RedeemedAt = &redeemedAt

	onRollback(ctx, func() { token.RedeemedAt = nil })
	return nil
}

// DiscardOutstanding discards every issued token of typ for an account.
func (r *TokenRepository) DiscardOutstanding(ctx context.Context, accountID int64, typ auth.TokenType, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, token := range r.s.tokens {
		if token.AccountID != accountID || token.Type != typ || token.State() != auth.TokenIssued {
			continue
		}
		discardedAt := at
		token.DiscardedAt = &discardedAt
		n++

		t := token
		onRollback(ctx, func() { t.DiscardedAt = nil })
	}
	return n, nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *TokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, token := range r.s.tokens {
		if token.ExpiresAt.After(before) {
			continue
		}
		delete(r.s.tokens, id)
		delete(r.s.byHash, token.TokenHash)
		n++

		t := token
		onRollback(ctx, func() {
			r.s.tokens[t.ID] = t
			r.s.byHash[t.TokenHash] = t.ID
		})
	}
	return n, nil
}

// Compile-time interface checks.
var (
	_ auth.AccountRepository = (*AccountRepository)(nil)
	_ auth.RoleRepository    = (*RoleRepository)(nil)
	_ auth.TokenRepository   = (*TokenRepository)(nil)
)
