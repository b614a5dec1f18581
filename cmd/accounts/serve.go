// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// readinessInterval is how often serve re-checks the database.
var readinessInterval = 5 * time.Second

func newServeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics endpoint and the expired token sweeper",
		Long: `Run the long-lived accounts process. It serves Prometheus metrics and
health probes on server.metrics_addr and deletes expired tokens every
tokens.sweep_interval.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, env, cmd)
		},
	}
}

func runServe(ctx context.Context, env *cliEnv, cmd *cobra.Command) error {
	backend, cfg, logger, err := env.open(cmd, discardNotifier{})
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	ready.Store(backend.Ready(ctx))
	go watchReadiness(ctx, backend.Ready, &ready)

	obs := observability.NewServer(cfg.Server.MetricsAddr, ready.Load)
	errCh, err := obs.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, errCh, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runSweeper(ctx, backend.Service.Tokens(), cfg.Tokens.SweepInterval, logger)
	}()

	logger.InfoContext(ctx, "accounts service started",
		"metrics_addr", obs.Addr(),
		"sweep_interval", cfg.Tokens.SweepInterval.String())

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := obs.Stop(shutdownCtx); err != nil {
		errutil.LogWarn(logger, "error stopping metrics server", err)
	}
	<-done
	return nil
}

// purger deletes expired tokens.
type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// runSweeper purges expired tokens every interval until ctx is done. A
// non-positive interval disables sweeping.
func runSweeper(ctx context.Context, p purger, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				errutil.LogWarn(logger, "expired token sweep failed", err, "operation", "purge_expired")
				continue
			}
			observability.RecordTokensPurged(n)
		}
	}
}

func watchReadiness(ctx context.Context, check func(context.Context) bool, ready *atomic.Bool) {
	ticker := time.NewTicker(readinessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ready.Store(check(ctx))
		}
	}
}

// monitorServerErrors cancels ctx when the server reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			errutil.LogError(logger, "metrics server failed, shutting down", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
