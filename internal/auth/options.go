// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"log/slog"
	"time"
)

// Option configures a service.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	now       func() time.Time
	tokenTTL  time.Duration
	policy    BootstrapPolicy
	allowList *EmailAllowList
}

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		now:      time.Now,
		tokenTTL: DefaultTokenTTL,
		policy:   FirstAccountAdmin{},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source. Useful for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTokenTTL sets how long issued tokens stay redeemable.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.tokenTTL = ttl
		}
	}
}

// WithBootstrapPolicy replaces the FirstAccountAdmin policy.
func WithBootstrapPolicy(policy BootstrapPolicy) Option {
	return func(o *options) {
		if policy != nil {
			o.policy = policy
		}
	}
}

// WithEmailAllowList restricts registration to matching addresses.
func WithEmailAllowList(list *EmailAllowList) Option {
	return func(o *options) {
		o.allowList = list
	}
}
