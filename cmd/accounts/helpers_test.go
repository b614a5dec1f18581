// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/memory"
	"github.com/holomush/accounts/internal/config"
)

// fastParams keeps argon2id cheap in tests.
var fastParams = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

// harness runs CLI commands against one in-memory store, so state carries
// across invocations the way a database would.
type harness struct {
	store *memory.Store
	opens atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	return &harness{store: memory.NewStore()}
}

func (h *harness) openBackend(_ context.Context, cfg *config.Config, notifier auth.RecoveryNotifier, logger *slog.Logger) (*Backend, error) {
	h.opens.Add(1)
	opts, err := serviceOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := auth.NewService(auth.Dependencies{
		Accounts:   h.store.Accounts(),
		Roles:      h.store.Roles(),
		Tokens:     h.store.Tokens(),
		Transactor: h.store,
		Hasher:     auth.NewArgon2idHasherWithParams(fastParams),
		Notifier:   notifier,
		Links:      cfg.RecoveryLink,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Service: svc,
		Ready:   func(context.Context) bool { return true },
		Close:   func() {},
	}, nil
}

func (h *harness) openCount() int {
	return int(h.opens.Load())
}

// run executes the root command with a fresh command tree and returns
// what it wrote to stdout.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return h.runContext(context.Background(), t, stdin, args...)
}

func (h *harness) runContext(ctx context.Context, t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(&Deps{
		OpenBackend: h.openBackend,
		Logger:      newDiscardLogger(),
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

// mustRun is run that fails the test on error.
func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, "", args...)
	require.NoError(t, err, "accounts %s", strings.Join(args, " "))
	return out
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
