// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token configuration.
const (
	TokenBytes      = 32 // 32 bytes = 64 hex chars
	DefaultTokenTTL = 24 * time.Hour
)

// TokenType identifies the single action a token authorizes.
type TokenType string

// Token types.
const (
	TokenTypeForgottenPassword TokenType = "forgotten_password"
	TokenTypeEmailConfirmation TokenType = "email_confirmation"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	switch t {
	case TokenTypeForgottenPassword, TokenTypeEmailConfirmation:
		return true
	default:
		return false
	}
}

// TokenState is the lifecycle state of a token.
type TokenState int

// Token states. Redeemed and Discarded are terminal.
const (
	TokenIssued TokenState = iota
	TokenRedeemed
	TokenDiscarded
)

func (s TokenState) String() string {
	switch s {
	case TokenIssued:
		return "issued"
	case TokenRedeemed:
		return "redeemed"
	case TokenDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Token is a persisted single-use token. Only the hash of the plaintext
// value is stored.
type Token struct {
	ID          ulid.ULID
	AccountID   int64
	Email       string
	Type        TokenType
	TokenHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RedeemedAt  *time.Time
	DiscardedAt *time.Time
}

// NewToken creates a validated Token in the issued state.
func NewToken(accountID int64, email string, typ TokenType, tokenHash string, issuedAt time.Time, ttl time.Duration) (*Token, error) {
	if accountID <= 0 {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT").Errorf("account ID must be positive")
	}
	if email == "" {
		return nil, oops.Code("TOKEN_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !typ.Valid() {
		return nil, oops.Code("TOKEN_INVALID_TYPE").With("type", string(typ)).Errorf("unknown token type")
	}
	if tokenHash == "" {
		return nil, oops.Code("TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_INVALID_TTL").With("ttl", ttl.String()).Errorf("token TTL must be positive")
	}
	return &Token{
		ID:        ulid.Make(),
		AccountID: accountID,
		Email:     NormalizeEmail(email),
		Type:      typ,
		TokenHash: tokenHash,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// State returns the lifecycle state of the token.
func (t *Token) State() TokenState {
	switch {
	case t.RedeemedAt != nil:
		return TokenRedeemed
	case t.DiscardedAt != nil:
		return TokenDiscarded
	default:
		return TokenIssued
	}
}

// IsExpiredAt returns true if the token would be expired at the given time.
func (t *Token) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GenerateToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the user; the hash is stored.
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA256 hash of a plaintext token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenRepository manages token persistence.
type TokenRepository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *Token) error

	// GetByHash retrieves a token by its hash.
	// Returns ErrNotFound if no token has the given hash.
	GetByHash(ctx context.Context, tokenHash string) (*Token, error)

	// MarkRedeemed moves a token from issued to redeemed. It is a
	// conditional write: if the token is no longer issued it returns an
	// error wrapping ErrTokenSpent and changes nothing.
	MarkRedeemed(ctx context.Context, id ulid.ULID, at time.Time) error

	// DiscardOutstanding discards every issued token of the given type for
	// an account and returns how many were discarded.
	DiscardOutstanding(ctx context.Context, accountID int64, typ TokenType, at time.Time) (int64, error)

	// DeleteExpired removes tokens that expired before the given time and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
