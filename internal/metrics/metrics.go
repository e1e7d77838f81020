package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RegistrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_registrations_total",
			Help: "number of successful event registrations",
		},
	)

	CancellationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_cancellations_total",
			Help: "number of cancelled event registrations",
		},
	)

	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_orders_created_total",
			Help: "number of payment orders created",
		},
	)

	ReconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_outcomes_total",
			Help: "reconciliation sweep outcomes by result",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(
		RegistrationsTotal,
		CancellationsTotal,
		OrdersCreatedTotal,
		ReconcileOutcomes,
	)
}
