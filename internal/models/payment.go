package models

import "github.com/shopspring/decimal"

// PaymentOutcome is what crosses from the external payment collaborator.
// The booking core never processes cards or mobile money itself.
type PaymentOutcome struct {
	OrderID         string          `json:"order_id"`
	Success         bool            `json:"success"`
	AmountConfirmed decimal.Decimal `json:"amount_confirmed"`
	TransactionRef  string          `json:"transaction_ref"`
}
