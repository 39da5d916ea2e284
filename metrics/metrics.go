// Package metrics exposes Prometheus counters for workflow outcomes.
// Registered on the default registry; served by the API's /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowCommits counts sagas that reached Committed, by transaction type.
	WorkflowCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "workflow_commits_total",
		Help:      "Workflows that committed successfully.",
	}, []string{"type"})

	// WorkflowRollbacks counts sagas that failed and rolled back, by type.
	WorkflowRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "workflow_rollbacks_total",
		Help:      "Workflows that failed and were compensated.",
	}, []string{"type"})

	// CompensationFailures counts rollback steps that themselves failed.
	// Nonzero values mean manual reconciliation may be needed.
	CompensationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "compensation_failures_total",
		Help:      "Saga compensation steps that failed during rollback.",
	}, []string{"type"})
)
