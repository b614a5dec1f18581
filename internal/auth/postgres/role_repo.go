// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// RoleRepository implements auth.RoleRepository using PostgreSQL.
type RoleRepository struct {
	pool Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// Get returns the roles assigned to an account. An account with no roles
// yields an empty set.
func (r *RoleRepository) Get(ctx context.Context, accountID int64) (auth.RoleSet, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT role FROM account_roles
		WHERE account_id = $1
		ORDER BY role
	`, accountID)
	if err != nil {
		return nil, oops.Code("ROLES_GET_FAILED").
			With("operation", "query roles").
			With("account_id", accountID).
			Wrap(err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, oops.Code("ROLES_SCAN_FAILED").With("account_id", accountID).Wrap(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLES_ITERATE_FAILED").With("account_id", accountID).Wrap(err)
	}
	return auth.NewRoleSet(roles...), nil
}

// Set replaces the roles assigned to an account. Both statements run in one
// transaction, joining the caller's if ctx carries one.
func (r *RoleRepository) Set(ctx context.Context, accountID int64, roles auth.RoleSet) error {
	return NewTransactor(r.pool).InTransaction(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)
		if _, err := q.Exec(ctx, `DELETE FROM account_roles WHERE account_id = $1`, accountID); err != nil {
			return oops.Code("ROLES_SET_FAILED").
				With("operation", "delete roles").
				With("account_id", accountID).
				Wrap(err)
		}
		for _, role := range auth.NewRoleSet(roles...) {
			_, err := q.Exec(ctx, `
				INSERT INTO account_roles (account_id, role) VALUES ($1, $2)
			`, accountID, role)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
					return oops.Code("ROLES_ACCOUNT_NOT_FOUND").
						With("account_id", accountID).
						Wrap(auth.ErrNotFound)
				}
				return oops.Code("ROLES_SET_FAILED").
					With("operation", "insert role").
					With("account_id", accountID).
					With("role", role).
					Wrap(err)
			}
		}
		return nil
	})
}

// Compile-time interface check.
var _ auth.RoleRepository = (*RoleRepository)(nil)
