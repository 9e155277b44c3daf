// Package monitoring defines the Prometheus metrics exposed on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts reservation attempts by outcome:
	// reserved, sold_out, already_registered, closed, error.
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})

	// PaymentCallbacksTotal counts gateway callbacks by outcome:
	// paid, failed, replay, conflict, late, not_found, error.
	PaymentCallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_payment_callbacks_total",
		Help: "Payment gateway callbacks by outcome.",
	}, []string{"outcome"})

	// TicketsExpiredTotal counts tickets cancelled by the hold expiry
	// sweeper.
	TicketsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketing_tickets_expired_total",
		Help: "Reserved tickets cancelled after their hold deadline passed.",
	})

	// HTTPRequestsTotal counts handled HTTP requests by method, route
	// and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketing_http_requests_total",
		Help: "Handled HTTP requests.",
	}, []string{"method", "path", "status"})
)
