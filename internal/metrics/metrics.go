package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrderWritesTotal tracks order mutations by operation and outcome kind
	OrderWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_order_writes_total",
			Help: "Total number of order write attempts",
		},
		[]string{"operation", "result"},
	)

	// OrderConflictsTotal tracks rejected stale-version and busy-table writes
	OrderConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_order_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts",
		},
		[]string{"operation"},
	)

	// InvoiceWritesTotal tracks dual-write protocol outcomes
	InvoiceWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_invoice_writes_total",
			Help: "Total number of invoice store attempts",
		},
		[]string{"result"},
	)

	// InvoiceRollbacksTotal tracks compensating row deletes after a failed blob upload
	InvoiceRollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_invoice_rollbacks_total",
			Help: "Total number of invoice rows rolled back after blob upload failures",
		},
	)

	// RetryAttemptsTotal tracks extra attempts spent in retry loops per label
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_retry_attempts_total",
			Help: "Total number of retried attempts",
		},
		[]string{"label"},
	)
)
