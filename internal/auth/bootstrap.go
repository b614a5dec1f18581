// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

// BootstrapPolicy decides the initial roles of a newly registered account
// from the total account count observed after its insert. The count is read
// under the registration lock, so exactly one registration observes 1.
type BootstrapPolicy interface {
	RolesFor(accountCount int64) RoleSet
}

// FirstAccountAdmin grants Admin to the first account ever registered and
// Authenticated to everyone.
type FirstAccountAdmin struct{}

// RolesFor implements BootstrapPolicy.
func (FirstAccountAdmin) RolesFor(accountCount int64) RoleSet {
	if accountCount == 1 {
		return NewRoleSet(RoleAdmin, RoleAuthenticated)
	}
	return NewRoleSet(RoleAuthenticated)
}
