package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"ticket_type_id", "outcome"},
	)

	ordersFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_orders_finalized_total",
			Help: "Orders reaching a terminal status",
		},
		[]string{"status"},
	)

	ticketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_ticket_transitions_total",
			Help: "Ticket lifecycle transitions",
		},
		[]string{"transition"},
	)

	notificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch buffer was full",
		},
	)
)

func ReservationGranted(ticketTypeID string) {
	reservations.WithLabelValues(ticketTypeID, "granted").Inc()
}

func ReservationDenied(ticketTypeID, reason string) {
	reservations.WithLabelValues(ticketTypeID, reason).Inc()
}

func OrderFinalized(status string) {
	ordersFinalized.WithLabelValues(status).Inc()
}

func TicketTransition(transition string) {
	ticketTransitions.WithLabelValues(transition).Inc()
}

func NotificationDropped() {
	notificationsDropped.Inc()
}
