// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

func registerParams(email string) auth.RegisterParams {
	return auth.RegisterParams{
		Email:      email,
		Password:   "secret",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	}
}

var _ = Describe("Service", func() {
	var (
		ctx context.Context
		box *outbox
		svc *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		env.reset()
		box = &outbox{}
		svc = newService(box)
	})

	Describe("Register", func() {
		It("bootstraps the first account as administrator", func() {
			first, err := svc.Register(ctx, registerParams("Admin@Example.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Bootstrapped).To(BeTrue())
			Expect(first.Account.ID).To(Equal(int64(1)))
			Expect(first.Roles).To(Equal(auth.NewRoleSet(auth.RoleAdmin, auth.RoleAuthenticated)))

			second, err := svc.Register(ctx, registerParams("user@example.com"))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Bootstrapped).To(BeFalse())
			Expect(second.Roles).To(Equal(auth.RoleSet{auth.RoleAuthenticated}))
		})

		It("rejects an email that differs only by case", func() {
			_, err := svc.Register(ctx, registerParams("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Register(ctx, registerParams("ADA@Example.COM"))
			Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue())
			Expect(errutil.Code(err)).To(Equal(auth.CodeDuplicateEmail))

			roles, err := svc.RolesFor(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(BeEmpty())
		})

		It("bootstraps exactly one administrator under concurrent registration", func() {
			const workers = 12
			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				admins int
				errs   []error
			)
			for i := range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					identity, err := svc.Register(ctx, registerParams(fmt.Sprintf("user%d@example.com", i)))
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
						return
					}
					if identity.Roles.IsAdmin() {
						admins++
					}
				}()
			}
			wg.Wait()

			Expect(errs).To(BeEmpty())
			Expect(admins).To(Equal(1))

			var adminRows int
			err := env.pool.QueryRow(ctx, `SELECT COUNT(*) FROM account_roles WHERE role = $1`, auth.RoleAdmin).Scan(&adminRows)
			Expect(err).NotTo(HaveOccurred())
			Expect(adminRows).To(Equal(1))
		})
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			_, err := svc.Register(ctx, registerParams("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("signs in with the registered password", func() {
			identity, err := svc.Authenticate(ctx, "Ada@Example.com", "secret")
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.Account.Email).To(Equal("ada@example.com"))
			Expect(identity.Roles.IsAdmin()).To(BeTrue())
		})

		It("gives unknown emails and wrong passwords the same answer", func() {
			_, wrong := svc.Authenticate(ctx, "ada@example.com", "nope")
			_, unknown := svc.Authenticate(ctx, "nobody@example.com", "secret")
			Expect(wrong).To(HaveOccurred())
			Expect(unknown).To(HaveOccurred())
			Expect(auth.PublicMessage(wrong)).To(Equal(auth.MessageInvalidCredentials))
			Expect(auth.PublicMessage(unknown)).To(Equal(auth.MessageInvalidCredentials))
		})
	})

	Describe("password recovery", func() {
		BeforeEach(func() {
			_, err := svc.Register(ctx, registerParams("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("resets the password once per token", func() {
			Expect(svc.IssueRecoveryToken(ctx, "ada@example.com")).To(Succeed())
			token := box.last("ada@example.com")
			Expect(token).To(HaveLen(2 * auth.TokenBytes))

			var stored int
			err := env.pool.QueryRow(ctx, `SELECT COUNT(*) FROM account_tokens WHERE token_hash = $1`, token).Scan(&stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeZero(), "plaintext tokens are never stored")

			Expect(svc.RedeemRecoveryToken(ctx, token, "ada@example.com", "new-secret")).To(Succeed())
			_, err = svc.Authenticate(ctx, "ada@example.com", "new-secret")
			Expect(err).NotTo(HaveOccurred())

			err = svc.RedeemRecoveryToken(ctx, token, "ada@example.com", "again")
			Expect(errutil.Code(err)).To(Equal(auth.CodeTokenAlreadyRedeemed))
		})

		It("discards the previous token when a new one is issued", func() {
			Expect(svc.IssueRecoveryToken(ctx, "ada@example.com")).To(Succeed())
			first := box.last("ada@example.com")
			Expect(svc.IssueRecoveryToken(ctx, "ada@example.com")).To(Succeed())
			second := box.last("ada@example.com")

			err := svc.RedeemRecoveryToken(ctx, first, "ada@example.com", "new-secret")
			Expect(errutil.Code(err)).To(Equal(auth.CodeTokenDiscarded))
			Expect(svc.RedeemRecoveryToken(ctx, second, "ada@example.com", "new-secret")).To(Succeed())
		})

		It("does nothing for unknown addresses", func() {
			Expect(svc.IssueRecoveryToken(ctx, "nobody@example.com")).To(Succeed())
			Expect(box.last("nobody@example.com")).To(BeEmpty())
		})

		It("redeems a token at most once under concurrency", func() {
			Expect(svc.IssueRecoveryToken(ctx, "ada@example.com")).To(Succeed())
			token := box.last("ada@example.com")

			const workers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					err := svc.RedeemRecoveryToken(ctx, token, "ada@example.com", fmt.Sprintf("pw-%d", i))
					if err == nil {
						mu.Lock()
						successes++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(successes).To(Equal(1))
		})

		It("rejects expired tokens and purges them", func() {
			now := time.Now()
			clock := func() time.Time { return now }
			timed := newService(box, auth.WithClock(clock), auth.WithTokenTTL(time.Minute))

			Expect(timed.IssueRecoveryToken(ctx, "ada@example.com")).To(Succeed())
			token := box.last("ada@example.com")

			now = now.Add(2 * time.Minute)
			err := timed.RedeemRecoveryToken(ctx, token, "ada@example.com", "new-secret")
			Expect(errutil.Code(err)).To(Equal(auth.CodeTokenExpired))

			n, err := timed.Tokens().PurgeExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			err = timed.RedeemRecoveryToken(ctx, token, "ada@example.com", "new-secret")
			Expect(errutil.Code(err)).To(Equal(auth.CodeTokenNotFound))
		})
	})
})
