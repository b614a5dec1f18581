// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// EmailAllowList matches normalized email addresses against glob patterns
// such as "*@example.com". A nil or empty list allows every address.
type EmailAllowList struct {
	patterns []string
	globs    []glob.Glob
}

// NewEmailAllowList compiles the given patterns. Patterns are matched
// against normalized addresses, so they should be lower-case.
func NewEmailAllowList(patterns []string) (*EmailAllowList, error) {
	list := &EmailAllowList{}
	for _, p := range patterns {
		p = NormalizeEmail(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("AUTH_INVALID_ALLOW_LIST").With("pattern", p).Wrap(err)
		}
		list.patterns = append(list.patterns, p)
		list.globs = append(list.globs, g)
	}
	return list, nil
}

// Allows reports whether email may register.
func (l *EmailAllowList) Allows(email string) bool {
	if l == nil || len(l.globs) == 0 {
		return true
	}
	email = NormalizeEmail(email)
	for _, g := range l.globs {
		if g.Match(email) {
			return true
		}
	}
	return false
}

// Patterns returns the compiled patterns.
func (l *EmailAllowList) Patterns() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.patterns...)
}
