package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	Date        time.Time `bun:"date,notnull" json:"date"`
	Capacity    int       `bun:"capacity,notnull" json:"capacity"`
	TicketsSold int       `bun:"tickets_sold,notnull,default:0" json:"tickets_sold"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}

// TicketType is a priced admission category under an event with its own
// quantity pool. The available counter is mutated only by the reservation
// engine, never written directly by order or ticket code.
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types"`

	ID          string          `bun:"id,pk" json:"id"`
	EventID     string          `bun:"event_id,notnull" json:"event_id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Description string          `bun:"description" json:"description"`
	Price       decimal.Decimal `bun:"price,notnull" json:"price"`
	Quantity    int             `bun:"quantity,notnull" json:"quantity"`
	Available   int             `bun:"available,notnull" json:"available"`
	MaxPerOrder int             `bun:"max_per_order,notnull" json:"max_per_order"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
}

// TicketTypeUpdate carries the mutable ticket type fields; nil means leave
// the field as is.
type TicketTypeUpdate struct {
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	MaxPerOrder *int             `json:"max_per_order,omitempty"`
}
