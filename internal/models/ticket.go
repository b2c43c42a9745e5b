package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TicketStatusValid     = "VALID"
	TicketStatusUsed      = "USED"
	TicketStatusCancelled = "CANCELLED"
)

// Ticket is a single admission unit minted against a granted reservation.
// VALID is the initial state; USED and CANCELLED are terminal.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID           string    `bun:"id,pk" json:"id"`
	OrderID      string    `bun:"order_id,notnull" json:"order_id"`
	EventID      string    `bun:"event_id,notnull" json:"event_id"`
	TicketTypeID string    `bun:"ticket_type_id,notnull" json:"ticket_type_id"`
	UserID       string    `bun:"user_id,notnull" json:"user_id"`
	ScanToken    string    `bun:"scan_token,notnull,unique" json:"-"`
	QRCode       []byte    `bun:"qr_code" json:"qr_code,omitempty"`
	Status       string    `bun:"status,notnull" json:"status"`
	IssuedAt     time.Time `bun:"issued_at,notnull" json:"issued_at"`
	UsedAt       time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
}

// ValidationResult is the read-only outcome of a ticket entry check.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Ticket *Ticket `json:"ticket,omitempty"`
	Reason string  `json:"reason"`
}
