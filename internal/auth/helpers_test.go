// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/memory"
)

// fastHasher is argon2id with the cheapest parameters, for tests that hash
// for real.
func fastHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:    1,
		Memory:  1024,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	})
}

// passthroughTx runs fn directly, for tests driven by mocks.
type passthroughTx struct{}

func (passthroughTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps every recovery link it is asked to deliver.
type recordingNotifier struct {
	mu    sync.Mutex
	links map[string][]string
	err   error
}

func (n *recordingNotifier) NotifyRecovery(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.links == nil {
		n.links = make(map[string][]string)
	}
	n.links[email] = append(n.links[email], link)
	return n.err
}

func (n *recordingNotifier) Links(email string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.links[email]...)
}

// tokenLinks builds links that are just the token, so tests can read it back.
func tokenLinks(token string) string { return token }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// memoryEnv is a Service backed by an in-memory store.
type memoryEnv struct {
	store    *memory.Store
	notifier *recordingNotifier
	clock    *fakeClock
	hasher   *auth.Argon2idHasher
	svc      *auth.Service
}

func newMemoryEnv(t *testing.T, opts ...auth.Option) *memoryEnv {
	t.Helper()
	env := &memoryEnv{
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
		hasher:   fastHasher(),
	}
	opts = append([]auth.Option{auth.WithLogger(discardLogger()), auth.WithClock(env.clock.Now)}, opts...)
	svc, err := auth.NewService(auth.Dependencies{
		Accounts:   env.store.Accounts(),
		Roles:      env.store.Roles(),
		Tokens:     env.store.Tokens(),
		Transactor: env.store,
		Hasher:     env.hasher,
		Notifier:   env.notifier,
		Links:      tokenLinks,
	}, opts...)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (e *memoryEnv) register(t *testing.T, email, password string) *auth.Identity {
	t.Helper()
	identity, err := e.svc.Register(context.Background(), auth.RegisterParams{
		Email:      email,
		Password:   password,
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	})
	require.NoError(t, err)
	return identity
}

// recoveryToken requests recovery for email and returns the delivered token.
func (e *memoryEnv) recoveryToken(t *testing.T, email string) string {
	t.Helper()
	require.NoError(t, e.svc.IssueRecoveryToken(context.Background(), email))
	links := e.notifier.Links(auth.NormalizeEmail(email))
	require.NotEmpty(t, links, "no recovery link delivered for %s", email)
	return links[len(links)-1]
}
