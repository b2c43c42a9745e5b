package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string          `bun:"id,pk" json:"id"`
	UserID        string          `bun:"user_id,notnull" json:"user_id"`
	EventID       string          `bun:"event_id,notnull" json:"event_id"`
	Total         decimal.Decimal `bun:"total,notnull" json:"total"`
	Status        string          `bun:"status,notnull" json:"status"`
	PaymentMethod string          `bun:"payment_method" json:"payment_method"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// LineItem is one ticket-type/quantity pair of an order request.
type LineItem struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type OrderRequest struct {
	EventID       string          `json:"event_id"`
	Items         []LineItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
}

type OrderWithTickets struct {
	Order   Order    `json:"order"`
	Tickets []Ticket `json:"tickets"`
}
