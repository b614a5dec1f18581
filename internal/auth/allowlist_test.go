// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

func TestEmailAllowList(t *testing.T) {
	list, err := auth.NewEmailAllowList([]string{"*@Example.com", "ops-?@corp.example.org", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"*@example.com", "ops-?@corp.example.org"}, list.Patterns())

	tests := []struct {
		email string
		want  bool
	}{
		{email: "ada@example.com", want: true},
		{email: "ADA@EXAMPLE.COM", want: true},
		{email: "ops-1@corp.example.org", want: true},
		{email: "ops-12@corp.example.org", want: false},
		{email: "ada@example.com.evil.org", want: false},
		{email: "ada@elsewhere.org", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, list.Allows(tt.email))
		})
	}
}

func TestEmailAllowList_EmptyAllowsAll(t *testing.T) {
	var nilList *auth.EmailAllowList
	assert.True(t, nilList.Allows("anyone@anywhere.org"))
	assert.Nil(t, nilList.Patterns())

	empty, err := auth.NewEmailAllowList(nil)
	require.NoError(t, err)
	assert.True(t, empty.Allows("anyone@anywhere.org"))
}

func TestEmailAllowList_InvalidPattern(t *testing.T) {
	_, err := auth.NewEmailAllowList([]string{"[unterminated@example.com"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_ALLOW_LIST")
}
