package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/errs"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/monitoring"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/utils"
)

// Reason strings returned verbatim to scanning clients.
const (
	ReasonNotFound    = "Ticket not found"
	ReasonAlreadyUsed = "Ticket has already been used"
	ReasonCancelled   = "Ticket has been cancelled"
	ReasonEventPassed = "Event has already passed"
	ReasonValid       = "Ticket is valid"
)

type TicketStore interface {
	CreateTicket(ctx context.Context, ticket models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticket models.Ticket, fromStatus string) error
	GetTicketsByOrder(ctx context.Context, orderID string) ([]models.Ticket, error)
	GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
}

// ReservationReleaser is the slice of the reservation engine cancellation
// needs: returning one unit of capacity per cancelled ticket.
type ReservationReleaser interface {
	Release(ctx context.Context, ticketTypeID string, quantity int) error
}

type EventLookup interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type Notifier interface {
	Notify(userID, notificationType string, metadata map[string]string)
}

// Service mints tickets against granted reservations and governs their
// lifecycle: VALID -> USED, VALID -> CANCELLED, nothing out of a terminal
// state.
type Service struct {
	DB        TicketStore
	Inventory ReservationReleaser
	Events    EventLookup
	Notifier  Notifier
	QR        *qr.QRGenerator
	Logger    *logger.Logger
}

func NewService(db TicketStore, inventory ReservationReleaser, events EventLookup, notifier Notifier, qrGen *qr.QRGenerator, log *logger.Logger) *Service {
	return &Service{DB: db, Inventory: inventory, Events: events, Notifier: notifier, QR: qrGen, Logger: log}
}

// Mint creates one VALID ticket bound to an order. It performs no inventory
// mutation; the reservation was already granted. A persistence failure here
// propagates so the orchestrator can release the grant.
func (s *Service) Mint(ctx context.Context, orderID, eventID, ticketTypeID, userID string) (*models.Ticket, error) {
	scanToken, err := utils.GenerateScanToken()
	if err != nil {
		return nil, err
	}

	ticket := models.Ticket{
		ID:           uuid.NewString(),
		OrderID:      orderID,
		EventID:      eventID,
		TicketTypeID: ticketTypeID,
		UserID:       userID,
		ScanToken:    scanToken,
		Status:       models.TicketStatusValid,
		IssuedAt:     time.Now(),
	}

	qrBytes, err := s.QR.GenerateEncryptedQR(qr.TokenPayload{
		TicketID:  ticket.ID,
		EventID:   eventID,
		ScanToken: scanToken,
		IssuedAt:  ticket.IssuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR for ticket %s: %w", ticket.ID, err)
	}
	ticket.QRCode = qrBytes

	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to persist ticket %s: %w", ticket.ID, err)
	}

	s.Logger.LogTicket("MINT", ticket.ID, fmt.Sprintf("Issued for order %s", orderID))
	return &ticket, nil
}

// Validate is the read-only entry check. It never mutates state; an invalid
// ticket comes back with Valid=false and the reason, not an error.
func (s *Service) Validate(ctx context.Context, ticketID string) (*models.ValidationResult, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if errors.Is(err, errs.ErrNotFound) {
		return &models.ValidationResult{Valid: false, Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case models.TicketStatusUsed:
		return &models.ValidationResult{Valid: false, Ticket: ticket, Reason: ReasonAlreadyUsed}, nil
	case models.TicketStatusCancelled:
		return &models.ValidationResult{Valid: false, Ticket: ticket, Reason: ReasonCancelled}, nil
	}

	event, err := s.Events.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if event.Date.Before(time.Now()) {
		return &models.ValidationResult{Valid: false, Ticket: ticket, Reason: ReasonEventPassed}, nil
	}

	return &models.ValidationResult{Valid: true, Ticket: ticket, Reason: ReasonValid}, nil
}

// MarkUsed transitions a VALID ticket to USED after an entry scan.
func (s *Service) MarkUsed(ctx context.Context, ticketID string) (*models.Ticket, error) {
	validation, err := s.Validate(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		if validation.Ticket == nil {
			return nil, fmt.Errorf("%s: %w", validation.Reason, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", validation.Reason, errs.ErrInvalidTransition)
	}

	ticket := *validation.Ticket
	ticket.Status = models.TicketStatusUsed
	ticket.UsedAt = time.Now()
	if err := s.DB.UpdateTicketStatus(ctx, ticket, models.TicketStatusValid); err != nil {
		return nil, err
	}

	monitoring.TicketTransition("used")
	s.Logger.LogTicket("USE", ticket.ID, "Scanned at entry")
	s.Notifier.Notify(ticket.UserID, models.NotificationTicketUsed, map[string]string{
		"ticket_id": ticket.ID,
		"event_id":  ticket.EventID,
	})

	return &ticket, nil
}

// Cancel transitions a VALID ticket to CANCELLED and returns its unit of
// capacity to the pool. USED and CANCELLED are terminal.
func (s *Service) Cancel(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case models.TicketStatusUsed:
		return nil, fmt.Errorf("ticket %s: %w", ticketID, errs.ErrCannotCancelUsedTicket)
	case models.TicketStatusCancelled:
		return nil, fmt.Errorf("ticket %s: %w", ticketID, errs.ErrAlreadyCancelled)
	}

	cancelled := *ticket
	cancelled.Status = models.TicketStatusCancelled
	if err := s.DB.UpdateTicketStatus(ctx, cancelled, models.TicketStatusValid); err != nil {
		return nil, err
	}

	// The status update above is the idempotence boundary: a concurrent
	// second cancel fails there, so the release below runs exactly once.
	if err := s.Inventory.Release(ctx, ticket.TicketTypeID, 1); err != nil {
		s.Logger.Error("TICKET", fmt.Sprintf(
			"CRITICAL: ticket %s cancelled but release failed, inventory needs reconciliation: %v",
			ticketID, err))
	}

	monitoring.TicketTransition("cancelled")
	s.Logger.LogTicket("CANCEL", ticketID, "Cancelled and capacity released")
	s.Notifier.Notify(ticket.UserID, models.NotificationTicketCancelled, map[string]string{
		"ticket_id": ticket.ID,
		"event_id":  ticket.EventID,
	})

	return &cancelled, nil
}

// CancelOrderTickets sweeps every still-VALID ticket of an order into
// CANCELLED and reports how many units per ticket type were cancelled, so
// the orchestrator can release exactly that much inventory. It does not
// touch availability counters itself.
func (s *Service) CancelOrderTickets(ctx context.Context, orderID string) ([]models.LineItem, error) {
	ticketList, err := s.DB.GetTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for order %s: %w", orderID, err)
	}

	counts := make(map[string]int)
	for _, ticket := range ticketList {
		if ticket.Status != models.TicketStatusValid {
			continue
		}
		cancelled := ticket
		cancelled.Status = models.TicketStatusCancelled
		if err := s.DB.UpdateTicketStatus(ctx, cancelled, models.TicketStatusValid); err != nil {
			if errors.Is(err, errs.ErrInvalidTransition) {
				// Lost the race to a concurrent transition; that path
				// accounts for the inventory.
				continue
			}
			return nil, err
		}
		counts[ticket.TicketTypeID]++
		monitoring.TicketTransition("cancelled")
	}

	items := make([]models.LineItem, 0, len(counts))
	for ticketTypeID, quantity := range counts {
		items = append(items, models.LineItem{TicketTypeID: ticketTypeID, Quantity: quantity})
	}
	return items, nil
}

func (s *Service) GetTicketsByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	tickets, err := s.DB.GetTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for order %s: %w", orderID, err)
	}
	return tickets, nil
}

func (s *Service) GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	tickets, err := s.DB.GetTicketsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for user %s: %w", userID, err)
	}
	return tickets, nil
}
