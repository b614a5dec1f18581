// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "context"

// Identity is what a host binds into its session after a successful login
// or registration.
type Identity struct {
	Account *Account
	Roles   RoleSet

	// Bootstrapped is set when the identity belongs to the bootstrap
	// administrator that was just registered.
	Bootstrapped bool
}

// SessionBinder stores an Identity in the host's session. Implementations
// live in the host; this package only produces the Identity.
type SessionBinder interface {
	Bind(ctx context.Context, identity Identity) error
}

// RecoveryNotifier delivers a recovery link to an email address. Delivery
// is best-effort: failures are logged and never reported to the requester.
type RecoveryNotifier interface {
	NotifyRecovery(ctx context.Context, email, link string) error
}

// LinkBuilder turns a plaintext token into the user-facing recovery URL.
type LinkBuilder func(token string) string
