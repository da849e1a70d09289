package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkInOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_checkins_total",
			Help: "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	salesRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketflow_sales_registered_total",
			Help: "Sales registered",
		},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_tickets_issued_total",
			Help: "Tickets issued by kind",
		},
		[]string{"kind"},
	)

	paymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_payment_transitions_total",
			Help: "Sale payment status transitions",
		},
		[]string{"to"},
	)
)

func TrackCheckIn(outcome string) {
	checkInOutcomes.WithLabelValues(outcome).Inc()
}

func TrackSaleRegistered(tickets int, kind string) {
	salesRegistered.Inc()
	ticketsIssued.WithLabelValues(kind).Add(float64(tickets))
}

func TrackTicketsIssued(tickets int, kind string) {
	ticketsIssued.WithLabelValues(kind).Add(float64(tickets))
}

func TrackPaymentTransition(to string) {
	paymentTransitions.WithLabelValues(to).Inc()
}
