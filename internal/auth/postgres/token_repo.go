// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores a new token.
func (r *TokenRepository) Create(ctx context.Context, token *auth.Token) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO account_tokens (id, account_id, email, token_type, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		token.ID.String(),
		token.AccountID,
		token.Email,
		string(token.Type),
		token.TokenHash,
		token.IssuedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert token").
			With("account_id", token.AccountID).
			With("type", string(token.Type)).
			Wrap(err)
	}
	return nil
}

// GetByHash retrieves a token by its hash.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*auth.Token, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, account_id, email, token_type, token_hash, issued_at, expires_at, redeemed_at, discarded_at
		FROM account_tokens
		WHERE token_hash = $1
	`, tokenHash)

	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").With("operation", "get token by hash").Wrap(err)
	}
	return token, nil
}

// MarkRedeemed moves an issued token to redeemed. The state check is part of
// the UPDATE so that concurrent redemptions of one token cannot both succeed.
func (r *TokenRepository) MarkRedeemed(ctx context.Context, id ulid.ULID, at time.Time) error {
	q := conn(ctx, r.pool)
	result, err := q.Exec(ctx, `
		UPDATE account_tokens SET redeemed_at = $2
		WHERE id = $1 AND redeemed_at IS NULL AND discarded_at IS NULL
	`, id.String(), at)
	if err != nil {
		return oops.Code("TOKEN_REDEEM_FAILED").
			With("operation", "mark redeemed").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM account_tokens WHERE id = $1)`, id.String()).Scan(&exists)
	if err != nil {
		return oops.Code("TOKEN_REDEEM_FAILED").
			With("operation", "check token exists").
			With("id", id.String()).
			Wrap(err)
	}
	if !exists {
		return oops.Code("TOKEN_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return oops.Code("TOKEN_SPENT").With("id", id.String()).Wrap(auth.ErrTokenSpent)
}

// DiscardOutstanding discards every issued token of typ for an account.
func (r *TokenRepository) DiscardOutstanding(ctx context.Context, accountID int64, typ auth.TokenType, at time.Time) (int64, error) {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE account_tokens SET discarded_at = $3
		WHERE account_id = $1 AND token_type = $2
		  AND redeemed_at IS NULL AND discarded_at IS NULL
	`, accountID, string(typ), at)
	if err != nil {
		return 0, oops.Code("TOKEN_DISCARD_FAILED").
			With("operation", "discard outstanding").
			With("account_id", accountID).
			With("type", string(typ)).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens whose expiry is at or before the given time.
func (r *TokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM account_tokens WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, oops.Code("TOKEN_PURGE_FAILED").With("operation", "delete expired tokens").Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanToken scans a single row into a Token.
// Callers are responsible for handling pgx.ErrNoRows.
func scanToken(row pgx.Row) (*auth.Token, error) {
	var (
		t       auth.Token
		idStr   string
		typeStr string
	)
	err := row.Scan(&idStr, &t.AccountID, &t.Email, &typeStr, &t.TokenHash,
		&t.IssuedAt, &t.ExpiresAt, &t.RedeemedAt, &t.DiscardedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TOKEN_SCAN_FAILED").With("operation", "scan token").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TOKEN_SCAN_FAILED").With("operation", "parse token id").With("id", idStr).Wrap(err)
	}
	t.ID = id
	t.Type = auth.TokenType(typeStr)
	return &t, nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
