package models

import "time"

const (
	NotificationOrderCreated    = "ORDER_CREATED"
	NotificationOrderCompleted  = "ORDER_COMPLETED"
	NotificationOrderCancelled  = "ORDER_CANCELLED"
	NotificationPaymentFailed   = "PAYMENT_FAILED"
	NotificationTicketUsed      = "TICKET_USED"
	NotificationTicketCancelled = "TICKET_CANCELLED"
)

// Notification is the fire-and-forget payload handed off after a core
// transition commits. Delivery failures never roll back booking state.
type Notification struct {
	UserID    string            `json:"user_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
