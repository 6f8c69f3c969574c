// Package metrics defines Prometheus metrics for the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts registration attempts by role and status
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"role", "status"},
	)

	// RevocationsTotal counts admin revocations by role
	RevocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_revocations_total",
			Help: "Total number of admin revocations",
		},
		[]string{"role"},
	)

	// PassesIssuedTotal counts successfully minted passes
	PassesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_passes_issued_total",
			Help: "Total number of passes minted",
		},
	)

	// VerificationsTotal counts pass verifications by result
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_verifications_total",
			Help: "Total number of pass verifications",
		},
		[]string{"result"},
	)

	// AdminMutationsTotal counts admin control plane mutations by operation
	AdminMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_admin_mutations_total",
			Help: "Total number of admin control plane mutations",
		},
		[]string{"operation"},
	)

	// LedgerMintDuration tracks ledger mint call duration
	LedgerMintDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registry_ledger_mint_duration_seconds",
			Help:    "Ledger mint call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
