package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evgw_registrations_total",
			Help: "Registration requests by result",
		},
		[]string{"result"}, // created | rejected | error
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evgw_notifications_total",
			Help: "Outbox delivery attempts by outcome and sink",
		},
		[]string{"outcome", "sink"}, // sent | retry | failed , http | kafka
	)

	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evgw_reconcile_records_total",
			Help: "Reconciled feed records by operation",
		},
		[]string{"op"}, // added | updated
	)

	OutboxBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evgw_outbox_backlog",
			Help: "Outbox messages not yet delivered",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		RegistrationsTotal,
		NotificationsTotal,
		ReconcileTotal,
		OutboxBacklog,
	)
}
