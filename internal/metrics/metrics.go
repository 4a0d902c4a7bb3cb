package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CreditsTotal - количество зачислений на балансы.
	CreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guestpost_ledger_credits_total",
		Help: "Total number of balance credit events.",
	})

	// DebitsTotal - количество списаний с балансов.
	DebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guestpost_ledger_debits_total",
		Help: "Total number of balance debit events.",
	})

	// InsufficientFundsTotal - количество отклонённых списаний из-за
	// нехватки средств.
	InsufficientFundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guestpost_ledger_insufficient_funds_total",
		Help: "Total number of debits rejected for insufficient funds.",
	})

	// ReconciledOrdersTotal - количество заказов, разрешённых фоновой сверкой.
	ReconciledOrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guestpost_ledger_reconciled_orders_total",
		Help: "Total number of stuck orders resolved by the reconciler.",
	})
)
