// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"slices"
	"strings"
)

// Well-known role names.
const (
	RoleAdmin         = "Admin"
	RoleAuthenticated = "Authenticated"
)

// RoleSet is a sorted set of role names without duplicates.
// Construct it with NewRoleSet.
type RoleSet []string

// NewRoleSet builds a RoleSet, dropping blank and duplicate names.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set = append(set, name)
	}
	slices.Sort(set)
	return slices.Compact(set)
}

// Has reports whether the set contains name.
func (r RoleSet) Has(name string) bool {
	_, found := slices.BinarySearch(r, name)
	return found
}

// IsAdmin reports whether the set grants the administrator role.
func (r RoleSet) IsAdmin() bool {
	return r.Has(RoleAdmin)
}

// RoleRepository manages role assignments.
type RoleRepository interface {
	// Get returns the roles assigned to an account. Accounts without
	// assignments have an empty set.
	Get(ctx context.Context, accountID int64) (RoleSet, error)

	// Set replaces all roles assigned to an account.
	Set(ctx context.Context, accountID int64, roles RoleSet) error
}
