// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/logging"
	"github.com/holomush/accounts/internal/store"
)

// Backend is an opened account service and the function that releases it.
type Backend struct {
	Service *auth.Service
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) bool
	Close func()
}

// Deps are the injectable pieces of the CLI. Zero values use the
// PostgreSQL-backed defaults.
type Deps struct {
	// OpenBackend builds the account service from configuration.
	OpenBackend func(ctx context.Context, cfg *config.Config, notifier auth.RecoveryNotifier, logger *slog.Logger) (*Backend, error)
	// Logger overrides the logger built from configuration.
	Logger *slog.Logger
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.OpenBackend == nil {
		out.OpenBackend = openPostgresBackend
	}
	return &out
}

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	var configFile string

	cmd := &cobra.Command{
		Use:          "accounts",
		Short:        "Account authentication and recovery service",
		SilenceUsage: true,
		Long: `accounts manages user accounts: registration with the first account
bootstrapped as administrator, email and password login, and single-use
password recovery tokens.`,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/accounts/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	env := &cliEnv{deps: deps, configFile: &configFile}
	cmd.AddCommand(newServeCmd(env))
	cmd.AddCommand(newMigrateCmd(env))
	cmd.AddCommand(newAccountCmd(env))

	return cmd
}

// cliEnv resolves configuration and logging for subcommands.
type cliEnv struct {
	deps       *Deps
	configFile *string
}

func (e *cliEnv) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(*e.configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if e.deps.Logger != nil {
		return cfg, e.deps.Logger, nil
	}
	logger, err := logging.Setup("accounts", version, logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (e *cliEnv) open(cmd *cobra.Command, notifier auth.RecoveryNotifier) (*Backend, *config.Config, *slog.Logger, error) {
	cfg, logger, err := e.load(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := e.deps.OpenBackend(cmd.Context(), cfg, notifier, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return backend, cfg, logger, nil
}

// serviceOptions translates configuration into auth options.
func serviceOptions(cfg *config.Config, logger *slog.Logger) ([]auth.Option, error) {
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithTokenTTL(cfg.Tokens.TTL),
	}
	if len(cfg.Registration.AllowedEmails) > 0 {
		list, err := auth.NewEmailAllowList(cfg.Registration.AllowedEmails)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth.WithEmailAllowList(list))
	}
	return opts, nil
}

func openPostgresBackend(ctx context.Context, cfg *config.Config, notifier auth.RecoveryNotifier, logger *slog.Logger) (*Backend, error) {
	pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts)
	if err != nil {
		return nil, err
	}
	opts, err := serviceOptions(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	svc, err := auth.NewService(postgresDependencies(pool, cfg, notifier), opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{
		Service: svc,
		Ready:   func(ctx context.Context) bool { return pool.Ping(ctx) == nil },
		Close:   pool.Close,
	}, nil
}

func postgresDependencies(pool *pgxpool.Pool, cfg *config.Config, notifier auth.RecoveryNotifier) auth.Dependencies {
	return auth.Dependencies{
		Accounts:   postgres.NewAccountRepository(pool),
		Roles:      postgres.NewRoleRepository(pool),
		Tokens:     postgres.NewTokenRepository(pool),
		Transactor: postgres.NewTransactor(pool),
		Hasher:     auth.NewArgon2idHasher(),
		Notifier:   notifier,
		Links:      cfg.RecoveryLink,
	}
}

// discardNotifier drops recovery links. serve never issues tokens.
type discardNotifier struct{}

func (discardNotifier) NotifyRecovery(context.Context, string, string) error { return nil }
