// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/accounts/pkg/errutil"
)

// Sentinel errors. Repositories and services wrap these so callers can use
// errors.Is regardless of the oops code attached.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an email address is already registered.
	ErrDuplicateEmail = errors.New("email address already registered")

	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid account credentials")

	// ErrTokenSpent is returned by TokenRepository.MarkRedeemed when the token
	// is no longer in the issued state.
	ErrTokenSpent = errors.New("token no longer redeemable")
)

// Error codes attached to errors returned from this package.
const (
	CodeInvalidArgument    = "AUTH_INVALID_ARGUMENT"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"

	CodeTokenNotFound        = "RESET_TOKEN_NOT_FOUND"
	CodeTokenAlreadyRedeemed = "RESET_TOKEN_ALREADY_REDEEMED"
	CodeTokenDiscarded       = "RESET_TOKEN_DISCARDED"
	CodeTokenEmailMismatch   = "RESET_TOKEN_EMAIL_MISMATCH"
	CodeTokenWrongType       = "RESET_TOKEN_WRONG_TYPE"
	CodeTokenExpired         = "RESET_TOKEN_EXPIRED"
	CodeResetFailed          = "RESET_PASSWORD_FAILED"
	CodeIssueFailed          = "RESET_REQUEST_FAILED"
)

// User-facing messages returned by PublicMessage.
const (
	MessageInvalidCredentials = "Invalid Account Credentials"
	MessageDuplicateEmail     = "The Email Address you entered is already registered"
	MessageResetFailed        = "Could not reset password."
	MessageUnavailable        = "The service is temporarily unavailable. Please try again."
)

func invalidArgument(field, msg string) error {
	return oops.Code(CodeInvalidArgument).With("field", field).Errorf("%s", msg)
}

// storeError wraps a repository failure with the store-unavailable code.
func storeError(operation string, err error) error {
	return oops.Code(CodeStoreUnavailable).With("operation", operation).Wrap(err)
}

// PublicMessage maps an error from this package to a message that is safe to
// show an end user. Token failures collapse into one message so the caller
// cannot tell which check rejected the request.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	switch errutil.Code(err) {
	case CodeInvalidCredentials:
		return MessageInvalidCredentials
	case CodeDuplicateEmail:
		return MessageDuplicateEmail
	case CodeTokenNotFound, CodeTokenAlreadyRedeemed, CodeTokenDiscarded,
		CodeTokenEmailMismatch, CodeTokenWrongType, CodeTokenExpired, CodeResetFailed:
		return MessageResetFailed
	case CodeInvalidArgument:
		if oopsErr, ok := oops.AsOops(err); ok {
			return oopsErr.Error()
		}
		return err.Error()
	default:
		return MessageUnavailable
	}
}
