// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides account authentication and recovery.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account with a normalized, validated email
//   - NewToken - creates an issued Token bound to an account and email
//   - NewRoleSet - creates a sorted, de-duplicated RoleSet
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - LoginService - credential verification
//   - RegistrationService - account creation and bootstrap role assignment
//   - TokenService - issue and redeem single-use tokens
//   - Service - the host-facing facade combining the above
//
// Services are created with New*Service constructors that validate dependencies.
//
// # Concurrency
//
// Registration runs its insert, account count and role write inside one
// transaction holding the registration lock, so at most one account is ever
// bootstrapped as administrator. Token redemption relies on the conditional
// TokenRepository.MarkRedeemed write, so a token is consumed at most once.
package auth
