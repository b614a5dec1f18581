// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// TokenService issues and redeems single-use account tokens.
type TokenService struct {
	accounts AccountRepository
	tokens   TokenRepository
	tx       Transactor
	hasher   PasswordHasher
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewTokenService creates a new TokenService.
func NewTokenService(
	accounts AccountRepository,
	tokens TokenRepository,
	tx Transactor,
	hasher PasswordHasher,
	opts ...Option,
) (*TokenService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token repository is required")
	}
	if tx == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	o := applyOptions(opts)
	return &TokenService{
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		ttl:      o.tokenTTL,
		now:      o.now,
		logger:   o.logger,
	}, nil
}

// TTL returns how long issued tokens stay redeemable.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token of the given type for the account registered under
// email and returns its plaintext value. Earlier outstanding tokens of the
// same type are discarded.
//
// If no account has the email, Issue returns an empty token and a nil error
// so the outcome does not reveal whether the account exists. Callers must
// not expose the difference.
func (s *TokenService) Issue(ctx context.Context, email string, typ TokenType) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", invalidArgument("email", "email address cannot be empty")
	}
	if !typ.Valid() {
		return "", invalidArgument("type", "unknown token type")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code(CodeIssueFailed).With("operation", "get account by email").Wrap(err)
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return "", oops.Code(CodeIssueFailed).With("operation", "generate token").Wrap(err)
	}

	now := s.now()
	record, err := NewToken(account.ID, account.Email, typ, hash, now, s.ttl)
	if err != nil {
		return "", oops.Code(CodeIssueFailed).With("operation", "new token").Wrap(err)
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.tokens.DiscardOutstanding(ctx, account.ID, typ, now); err != nil {
			return oops.Code(CodeIssueFailed).With("operation", "discard outstanding tokens").Wrap(err)
		}
		if err := s.tokens.Create(ctx, record); err != nil {
			return oops.Code(CodeIssueFailed).With("operation", "create token").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Redeem consumes a forgotten-password token and sets the password of the
// account it was issued for. The token must have been issued against email.
//
// Each rejection carries its own code; PublicMessage collapses them into
// one user-facing message. A rejected redemption changes nothing.
func (s *TokenService) Redeem(ctx context.Context, token, email, newPassword string) error {
	email = NormalizeEmail(email)
	switch {
	case token == "":
		return invalidArgument("token", "reset token cannot be empty")
	case email == "":
		return invalidArgument("email", "email address cannot be empty")
	case newPassword == "":
		return invalidArgument("password", "new password cannot be empty")
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code(CodeResetFailed).With("operation", "hash password").Wrap(err)
	}

	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		record, err := s.tokens.GetByHash(ctx, HashToken(token))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code(CodeTokenNotFound).Errorf("reset token not found")
			}
			return oops.Code(CodeResetFailed).With("operation", "get token by hash").Wrap(err)
		}

		if err := s.checkRedeemable(record, email, TokenTypeForgottenPassword); err != nil {
			return err
		}

		now := s.now()
		if err := s.tokens.MarkRedeemed(ctx, record.ID, now); err != nil {
			if errors.Is(err, ErrTokenSpent) {
				return tokenAlreadyRedeemed(record)
			}
			return oops.Code(CodeResetFailed).With("operation", "mark token redeemed").Wrap(err)
		}

		if err := s.accounts.UpdatePassword(ctx, record.AccountID, hashedPassword); err != nil {
			return oops.Code(CodeResetFailed).
				With("operation", "update password").
				With("account_id", record.AccountID).
				Wrap(err)
		}

		if _, err := s.tokens.DiscardOutstanding(ctx, record.AccountID, record.Type, now); err != nil {
			return oops.Code(CodeResetFailed).With("operation", "discard sibling tokens").Wrap(err)
		}
		return nil
	})
}

func (s *TokenService) checkRedeemable(record *Token, email string, typ TokenType) error {
	switch record.State() {
	case TokenRedeemed:
		return tokenAlreadyRedeemed(record)
	case TokenDiscarded:
		return oops.Code(CodeTokenDiscarded).
			With("token_id", record.ID.String()).
			Errorf("reset token has been discarded")
	}
	if record.Email != email {
		return oops.Code(CodeTokenEmailMismatch).
			With("token_id", record.ID.String()).
			Errorf("reset token was issued for a different email address")
	}
	if record.Type != typ {
		return oops.Code(CodeTokenWrongType).
			With("token_id", record.ID.String()).
			With("type", string(record.Type)).
			Errorf("token cannot be used to reset a password")
	}
	if record.IsExpiredAt(s.now()) {
		return oops.Code(CodeTokenExpired).
			With("token_id", record.ID.String()).
			With("expires_at", record.ExpiresAt).
			Errorf("reset token has expired")
	}
	return nil
}

func tokenAlreadyRedeemed(record *Token) error {
	return oops.Code(CodeTokenAlreadyRedeemed).
		With("token_id", record.ID.String()).
		Errorf("reset token has already been redeemed")
}

// PurgeExpired deletes every token that has expired and returns the count.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("TOKEN_PURGE_FAILED").With("operation", "delete expired tokens").Wrap(err)
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "purged expired tokens", "count", n)
	}
	return n, nil
}
