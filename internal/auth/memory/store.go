// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the auth
// repositories, used by tests and by hosts that run without PostgreSQL.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/accounts/internal/auth"
)

// Store holds all in-memory state. Use Accounts, Roles and Tokens to get
// repository views and pass the Store itself as the auth.Transactor.
//
// Transactions are serialized by a single writer lock and undone on error,
// which also makes LockRegistrations a no-op.
type Store struct {
	// txMu serializes transactions.
	txMu sync.Mutex

	// mu guards the maps below.
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*auth.Account
	byEmail  map[string]int64
	roles    map[int64]auth.RoleSet
	tokens   map[ulid.ULID]*auth.Token
	byHash   map[string]ulid.ULID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*auth.Account),
		byEmail:  make(map[string]int64),
		roles:    make(map[int64]auth.RoleSet),
		tokens:   make(map[ulid.ULID]*auth.Token),
		byHash:   make(map[string]ulid.ULID),
	}
}

// Accounts returns the account repository view.
func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{s: s}
}

// Roles returns the role repository view.
func (s *Store) Roles() *RoleRepository {
	return &RoleRepository{s: s}
}

// Tokens returns the token repository view.
func (s *Store) Tokens() *TokenRepository {
	return &TokenRepository{s: s}
}

type txKey struct{}

// txn records how to undo the writes made inside a transaction.
type txn struct {
	undo []func()
}

// InTransaction runs fn while holding the transaction lock. Writes made
// with the context handed to fn are undone if fn returns an error or panics.
// Nested calls join the outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*txn); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &txn{}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(t)
			panic(p)
		}
		if err != nil {
			s.rollback(t)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, t))
}

func (s *Store) rollback(t *txn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

// onRollback registers an undo step when ctx carries a transaction.
// Callers must hold s.mu; undo steps run with s.mu held.
func onRollback(ctx context.Context, undo func()) {
	if t, ok := ctx.Value(txKey{}).(*txn); ok {
		t.undo = append(t.undo, undo)
	}
}

// Compile-time interface check.
var _ auth.Transactor = (*Store)(nil)
