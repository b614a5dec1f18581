// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// Package-level counters so the auth services can record outcomes without
// holding a Server.
var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_registrations_total",
			Help: "Registration attempts by result",
		},
		[]string{"result"},
	)
	recoveryTokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_recovery_tokens_issued_total",
			Help: "Password recovery tokens issued",
		},
	)
	recoveryRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_recovery_redemptions_total",
			Help: "Password recovery token redemptions by result",
		},
		[]string{"result"},
	)
	tokensPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_tokens_purged_total",
			Help: "Expired tokens removed by the sweeper",
		},
	)
)

// RecordLogin counts a login attempt.
func RecordLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

// RecordRegistration counts a registration attempt.
func RecordRegistration(result string) {
	registrationsTotal.WithLabelValues(result).Inc()
}

// RecordRecoveryTokenIssued counts an issued recovery token.
func RecordRecoveryTokenIssued() {
	recoveryTokensIssued.Inc()
}

// RecordRedemption counts a recovery token redemption attempt.
func RecordRedemption(result string) {
	recoveryRedemptions.WithLabelValues(result).Inc()
}

// RecordTokensPurged adds n to the purged token counter.
func RecordTokensPurged(n int64) {
	if n > 0 {
		tokensPurged.Add(float64(n))
	}
}

// Metrics exposes the account counters registered on a Server.
type Metrics struct {
	Logins               *prometheus.CounterVec
	Registrations        *prometheus.CounterVec
	RecoveryTokensIssued prometheus.Counter
	RecoveryRedemptions  *prometheus.CounterVec
	TokensPurged         prometheus.Counter
}

// NewMetrics registers the account counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins:               loginsTotal,
		Registrations:        registrationsTotal,
		RecoveryTokensIssued: recoveryTokensIssued,
		RecoveryRedemptions:  recoveryRedemptions,
		TokensPurged:         tokensPurged,
	}
	reg.MustRegister(
		m.Logins,
		m.Registrations,
		m.RecoveryTokensIssued,
		m.RecoveryRedemptions,
		m.TokensPurged,
	)
	return m
}
