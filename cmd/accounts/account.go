// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

// MessageRecoveryRequested is printed for every recovery request so the
// output does not reveal whether an account exists.
const MessageRecoveryRequested = "If an account exists for that address, a recovery link has been sent."

// writerBinder binds an identity by printing it. It is the CLI's session.
type writerBinder struct {
	w io.Writer
}

func (b writerBinder) Bind(_ context.Context, identity auth.Identity) error {
	if identity.Bootstrapped {
		if _, err := fmt.Fprintln(b.w, "Bootstrap administrator created."); err != nil {
			return oops.Code("SESSION_BIND_FAILED").Wrap(err)
		}
	}
	_, err := fmt.Fprintf(b.w, "Signed in as %s (account %d) roles: %s\n",
		identity.Account.Email, identity.Account.ID, strings.Join(identity.Roles, ", "))
	if err != nil {
		return oops.Code("SESSION_BIND_FAILED").Wrap(err)
	}
	return nil
}

// writerNotifier delivers recovery links by printing them for the operator.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) NotifyRecovery(_ context.Context, email, link string) error {
	if _, err := fmt.Fprintf(n.w, "Recovery link for %s: %s\n", email, link); err != nil {
		return oops.Code("NOTIFY_FAILED").Wrap(err)
	}
	return nil
}

var (
	_ auth.SessionBinder    = writerBinder{}
	_ auth.RecoveryNotifier = writerNotifier{}
)

func newAccountCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Register, sign in and recover accounts",
	}
	cmd.AddCommand(
		newRegisterCmd(env),
		newLoginCmd(env),
		newForgotCmd(env),
		newResetCmd(env),
		newRolesCmd(env),
	)
	return cmd
}

// withService opens the backend, runs fn and turns service errors into
// their public message. Details are logged at debug level.
func withService(env *cliEnv, cmd *cobra.Command, fn func(ctx context.Context, svc *auth.Service) error) error {
	backend, _, logger, err := env.open(cmd, writerNotifier{w: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := fn(cmd.Context(), backend.Service); err != nil {
		return publicError(logger, err)
	}
	return nil
}

func publicError(logger *slog.Logger, err error) error {
	var usage usageError
	if errors.As(err, &usage) {
		return err
	}
	logger.Debug("account command failed", "code", errutil.Code(err), "error", err)
	return errors.New(auth.PublicMessage(err))
}

// usageError is a CLI input problem that is shown as is.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// readSecret returns value, or reads one line from in when value is empty.
func readSecret(cmd *cobra.Command, value, name string) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("INPUT_READ_FAILED").With("field", name).Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", usageError{msg: name + " is required (flag or stdin)"}
	}
	return line, nil
}

func newRegisterCmd(env *cliEnv) *cobra.Command {
	var params auth.RegisterParams
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in; the first account becomes Admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(cmd, params.Password, "password")
			if err != nil {
				return err
			}
			p := params
			p.Password = password
			return withService(env, cmd, func(ctx context.Context, svc *auth.Service) error {
				identity, err := svc.Register(ctx, p)
				if err != nil {
					return err
				}
				return writerBinder{w: cmd.OutOrStdout()}.Bind(ctx, *identity)
			})
		},
	}
	cmd.Flags().StringVar(&params.Email, "email", "", "email address")
	cmd.Flags().StringVar(&params.Password, "password", "", "password (read from stdin when empty)")
	cmd.Flags().StringVar(&params.GivenName, "given-name", "", "given name")
	cmd.Flags().StringVar(&params.FamilyName, "family-name", "", "family name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(env *cliEnv) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readSecret(cmd, password, "password")
			if err != nil {
				return err
			}
			return withService(env, cmd, func(ctx context.Context, svc *auth.Service) error {
				identity, err := svc.Authenticate(ctx, email, pw)
				if err != nil {
					return err
				}
				return writerBinder{w: cmd.OutOrStdout()}.Bind(ctx, *identity)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newForgotCmd(env *cliEnv) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Issue a password recovery token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(env, cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.IssueRecoveryToken(ctx, email); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), MessageRecoveryRequested)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetCmd(env *cliEnv) *cobra.Command {
	var token, email, password string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a recovery token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readSecret(cmd, password, "password")
			if err != nil {
				return err
			}
			return withService(env, cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.RedeemRecoveryToken(ctx, token, email, pw); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "recovery token")
	cmd.Flags().StringVar(&email, "email", "", "email address the token was issued to")
	cmd.Flags().StringVar(&password, "password", "", "new password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRolesCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "roles ACCOUNT_ID",
		Short: "Show the roles assigned to an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return usageError{msg: "ACCOUNT_ID must be a positive integer"}
			}
			return withService(env, cmd, func(ctx context.Context, svc *auth.Service) error {
				roles, err := svc.RolesFor(ctx, id)
				if err != nil {
					return err
				}
				if len(roles) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no roles)")
					return nil
				}
				for _, r := range roles {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), r)
				}
				return nil
			})
		},
	}
}
