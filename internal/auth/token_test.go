// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

func TestGenerateToken(t *testing.T) {
	token, hash, err := auth.GenerateToken()
	require.NoError(t, err)

	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, auth.TokenBytes)
	assert.Equal(t, auth.HashToken(token), hash)
	assert.Len(t, hash, 64)

	other, _, err := auth.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashToken(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", auth.HashToken("abc"))
}

func TestNewToken(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	token, err := auth.NewToken(7, "Ada@Example.com", auth.TokenTypeForgottenPassword, "hash", issued, time.Hour)
	require.NoError(t, err)
	assert.NotZero(t, token.ID)
	assert.Equal(t, int64(7), token.AccountID)
	assert.Equal(t, "ada@example.com", token.Email)
	assert.Equal(t, issued.Add(time.Hour), token.ExpiresAt)
	assert.Equal(t, auth.TokenIssued, token.State())

	tests := []struct {
		name      string
		accountID int64
		email     string
		typ       auth.TokenType
		hash      string
		ttl       time.Duration
		code      string
	}{
		{name: "zero account", accountID: 0, email: "a@b.c", typ: auth.TokenTypeForgottenPassword, hash: "h", ttl: time.Hour, code: "TOKEN_INVALID_ACCOUNT"},
		{name: "empty email", accountID: 1, email: "", typ: auth.TokenTypeForgottenPassword, hash: "h", ttl: time.Hour, code: "TOKEN_INVALID_EMAIL"},
		{name: "unknown type", accountID: 1, email: "a@b.c", typ: "login", hash: "h", ttl: time.Hour, code: "TOKEN_INVALID_TYPE"},
		{name: "empty hash", accountID: 1, email: "a@b.c", typ: auth.TokenTypeForgottenPassword, hash: "", ttl: time.Hour, code: "TOKEN_INVALID_HASH"},
		{name: "zero ttl", accountID: 1, email: "a@b.c", typ: auth.TokenTypeForgottenPassword, hash: "h", ttl: 0, code: "TOKEN_INVALID_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewToken(tt.accountID, tt.email, tt.typ, tt.hash, issued, tt.ttl)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestToken_State(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token auth.Token
		want  auth.TokenState
	}{
		{name: "issued", token: auth.Token{}, want: auth.TokenIssued},
		{name: "redeemed", token: auth.Token{RedeemedAt: &now}, want: auth.TokenRedeemed},
		{name: "discarded", token: auth.Token{DiscardedAt: &now}, want: auth.TokenDiscarded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.State())
			assert.Equal(t, tt.name, tt.want.String())
		})
	}
	assert.Equal(t, "unknown", auth.TokenState(99).String())
}

func TestToken_IsExpiredAt(t *testing.T) {
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token := auth.Token{ExpiresAt: expires}

	assert.False(t, token.IsExpiredAt(expires.Add(-time.Nanosecond)))
	assert.True(t, token.IsExpiredAt(expires))
	assert.True(t, token.IsExpiredAt(expires.Add(time.Second)))
}

func TestTokenType_Valid(t *testing.T) {
	assert.True(t, auth.TokenTypeForgottenPassword.Valid())
	assert.True(t, auth.TokenTypeEmailConfirmation.Valid())
	assert.False(t, auth.TokenType("").Valid())
	assert.False(t, auth.TokenType("FORGOTTEN_PASSWORD").Valid())
}
