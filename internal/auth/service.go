// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/pkg/errutil"
)

var tracer = otel.Tracer("accounts/auth")

// Dependencies are the stores and collaborators a Service is built from.
type Dependencies struct {
	Accounts   AccountRepository
	Roles      RoleRepository
	Tokens     TokenRepository
	Transactor Transactor
	Hasher     PasswordHasher
	Notifier   RecoveryNotifier
	Links      LinkBuilder
}

// Service is the entry point hosts call. It composes the login,
// registration and token services and resolves identities.
type Service struct {
	login        *LoginService
	registration *RegistrationService
	tokens       *TokenService
	roles        RoleRepository
	notifier     RecoveryNotifier
	links        LinkBuilder
	logger       *slog.Logger
}

// NewService creates a new Service.
func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	if deps.Notifier == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("recovery notifier is required")
	}
	if deps.Links == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("link builder is required")
	}

	login, err := NewLoginService(deps.Accounts, deps.Hasher)
	if err != nil {
		return nil, err
	}
	registration, err := NewRegistrationService(deps.Accounts, deps.Roles, deps.Transactor, deps.Hasher, opts...)
	if err != nil {
		return nil, err
	}
	tokens, err := NewTokenService(deps.Accounts, deps.Tokens, deps.Transactor, deps.Hasher, opts...)
	if err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	return &Service{
		login:        login,
		registration: registration,
		tokens:       tokens,
		roles:        deps.Roles,
		notifier:     deps.Notifier,
		links:        deps.Links,
		logger:       o.logger,
	}, nil
}

// Tokens returns the underlying TokenService.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Authenticate verifies credentials and resolves the account's roles.
func (s *Service) Authenticate(ctx context.Context, email, password string) (identity *Identity, err error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer func() { endSpan(span, err) }()
	defer func() { observability.RecordLogin(outcome(err)) }()

	account, err := s.login.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("account.id", account.ID))

	roles, err := s.RolesFor(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &Identity{Account: account, Roles: roles}, nil
}

// Register creates an account and returns its identity. The first account
// ever registered is bootstrapped as administrator.
func (s *Service) Register(ctx context.Context, params RegisterParams) (identity *Identity, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { endSpan(span, err) }()
	defer func() { observability.RecordRegistration(outcome(err)) }()

	reg, err := s.registration.Register(ctx, params)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("account.id", reg.Account.ID),
		attribute.Bool("account.bootstrapped", reg.Bootstrapped),
	)
	return &Identity{Account: reg.Account, Roles: reg.Roles, Bootstrapped: reg.Bootstrapped}, nil
}

// IssueRecoveryToken starts password recovery for email. It returns nil
// whether or not an account exists; only store failures are returned.
// Notification failures are logged.
func (s *Service) IssueRecoveryToken(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.issue_recovery_token")
	defer func() { endSpan(span, err) }()

	token, err := s.tokens.Issue(ctx, email, TokenTypeForgottenPassword)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	observability.RecordRecoveryTokenIssued()

	if notifyErr := s.notifier.NotifyRecovery(ctx, NormalizeEmail(email), s.links(token)); notifyErr != nil {
		errutil.LogWarn(s.logger, "best-effort step failed", notifyErr, "operation", "notify_recovery")
	}
	return nil
}

// RedeemRecoveryToken sets a new password using a recovery token issued
// for email.
func (s *Service) RedeemRecoveryToken(ctx context.Context, token, email, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.redeem_recovery_token")
	defer func() { endSpan(span, err) }()
	defer func() { observability.RecordRedemption(outcome(err)) }()

	err = s.tokens.Redeem(ctx, token, email, newPassword)
	if err != nil {
		s.logger.InfoContext(ctx, "recovery token rejected", "code", errutil.Code(err))
	}
	return err
}

// RolesFor returns the roles assigned to an account.
func (s *Service) RolesFor(ctx context.Context, accountID int64) (RoleSet, error) {
	roles, err := s.roles.Get(ctx, accountID)
	if err != nil {
		return nil, storeError("get roles", err)
	}
	return roles, nil
}

// outcome turns an error into a low-cardinality metric label.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch code := errutil.Code(err); {
	case code == CodeInvalidArgument, code == CodeInvalidCredentials, code == CodeDuplicateEmail,
		strings.HasPrefix(code, "RESET_TOKEN_"):
		return strings.ToLower(code)
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errutil.Code(err))
	}
	span.End()
}
