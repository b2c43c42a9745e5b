package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-booking/internal/errs"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/monitoring"
	"ms-booking/internal/utils"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, order models.Order, fromStatus string) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrderWithTickets(ctx context.Context, id string) (*models.OrderWithTickets, error)
	GetUserOrders(ctx context.Context, userID string) ([]models.OrderWithTickets, error)
}

// ReservationEngine is the inventory surface the orchestrator composes:
// all-or-nothing reservation plus lookups for validation and pricing.
type ReservationEngine interface {
	ReserveAll(ctx context.Context, items []models.LineItem) error
	ReleaseAll(ctx context.Context, items []models.LineItem) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
}

type TicketIssuer interface {
	Mint(ctx context.Context, orderID, eventID, ticketTypeID, userID string) (*models.Ticket, error)
	CancelOrderTickets(ctx context.Context, orderID string) ([]models.LineItem, error)
}

type Notifier interface {
	Notify(userID, notificationType string, metadata map[string]string)
}

// Service turns a purchase request into a durable, non-oversold allocation
// and later finalizes or compensates it as the payment outcome arrives.
type Service struct {
	DB        OrderStore
	Inventory ReservationEngine
	Tickets   TicketIssuer
	Notifier  Notifier
	Logger    *logger.Logger

	// ReserveRetries bounds automatic retries after a lost reservation
	// race; every other error surfaces immediately.
	ReserveRetries int
}

func NewService(db OrderStore, inventory ReservationEngine, tickets TicketIssuer, notifier Notifier, log *logger.Logger, reserveRetries int) *Service {
	if reserveRetries < 0 {
		reserveRetries = 0
	}
	return &Service{
		DB:             db,
		Inventory:      inventory,
		Tickets:        tickets,
		Notifier:       notifier,
		Logger:         log,
		ReserveRetries: reserveRetries,
	}
}

// CreateOrder reserves inventory for every line item, mints one ticket per
// reserved unit and persists the order as PENDING. Any failure after a
// grant releases everything granted before the error surfaces, so a failed
// call never leaves inventory decremented.
func (s *Service) CreateOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.OrderWithTickets, error) {
	if userID == "" {
		return nil, fmt.Errorf("order requires a user")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("order requires at least one line item")
	}

	event, err := s.Inventory.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	items, err := mergeLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	computedTotal, err := s.computeTotal(ctx, event.ID, items)
	if err != nil {
		return nil, err
	}
	if !computedTotal.Equal(req.Total) {
		return nil, fmt.Errorf("presented total %s does not match computed total %s: %w",
			req.Total.StringFixed(2), computedTotal.StringFixed(2), errs.ErrPaymentAmountMismatch)
	}

	if err := s.reserveWithRetry(ctx, items); err != nil {
		return nil, err
	}

	orderModel := models.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		EventID:       event.ID,
		Total:         computedTotal,
		Status:        models.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     time.Now(),
	}

	if err := s.DB.CreateOrder(ctx, orderModel); err != nil {
		s.compensate(ctx, items, "order persistence failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	tickets := make([]models.Ticket, 0)
	for _, item := range items {
		for i := 0; i < item.Quantity; i++ {
			ticket, err := s.Tickets.Mint(ctx, orderModel.ID, event.ID, item.TicketTypeID, userID)
			if err != nil {
				if delErr := s.DB.DeleteOrder(ctx, orderModel.ID); delErr != nil {
					s.Logger.Error("ORDER", fmt.Sprintf(
						"CRITICAL: failed to back out partial order %s: %v", orderModel.ID, delErr))
				}
				s.compensate(ctx, items, "ticket minting failed")
				return nil, fmt.Errorf("failed to mint ticket: %w", err)
			}
			tickets = append(tickets, *ticket)
		}
	}

	s.Logger.LogOrder("CREATE", orderModel.ID, fmt.Sprintf(
		"Pending order for user %s, %d tickets, total %s", userID, len(tickets), computedTotal.StringFixed(2)))
	s.Notifier.Notify(userID, models.NotificationOrderCreated, map[string]string{
		"order_id": orderModel.ID,
		"event_id": event.ID,
	})

	return &models.OrderWithTickets{Order: orderModel, Tickets: tickets}, nil
}

// Finalize reacts to the payment outcome: COMPLETED on success, CANCELLED
// plus full inventory release on failure. A confirmed amount that does not
// match the order total leaves the order PENDING and touches nothing.
func (s *Service) Finalize(ctx context.Context, orderID string, outcome models.PaymentOutcome) (*models.Order, error) {
	orderModel, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if orderModel.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order %s is already %s: %w", orderID, orderModel.Status, errs.ErrInvalidTransition)
	}

	if outcome.Success {
		if !outcome.AmountConfirmed.Equal(orderModel.Total) {
			return nil, fmt.Errorf("confirmed amount %s does not match order total %s: %w",
				outcome.AmountConfirmed.StringFixed(2), orderModel.Total.StringFixed(2), errs.ErrPaymentAmountMismatch)
		}
		if outcome.TransactionRef == "" {
			outcome.TransactionRef = utils.GenerateTransactionID()
		}
		return s.complete(ctx, *orderModel, outcome)
	}
	return s.cancel(ctx, *orderModel)
}

func (s *Service) complete(ctx context.Context, orderModel models.Order, outcome models.PaymentOutcome) (*models.Order, error) {
	orderModel.Status = models.OrderStatusCompleted
	orderModel.UpdatedAt = time.Now()
	if err := s.DB.UpdateOrderStatus(ctx, orderModel, models.OrderStatusPending); err != nil {
		return nil, err
	}

	monitoring.OrderFinalized(models.OrderStatusCompleted)
	s.Logger.LogOrder("COMPLETE", orderModel.ID, fmt.Sprintf("Payment confirmed, ref %s", outcome.TransactionRef))
	s.Notifier.Notify(orderModel.UserID, models.NotificationOrderCompleted, map[string]string{
		"order_id":        orderModel.ID,
		"transaction_ref": outcome.TransactionRef,
	})

	return &orderModel, nil
}

func (s *Service) cancel(ctx context.Context, orderModel models.Order) (*models.Order, error) {
	orderModel.Status = models.OrderStatusCancelled
	orderModel.UpdatedAt = time.Now()
	// Claiming the transition first keeps a concurrent Finalize from
	// compensating the same order twice.
	if err := s.DB.UpdateOrderStatus(ctx, orderModel, models.OrderStatusPending); err != nil {
		return nil, err
	}

	items, err := s.Tickets.CancelOrderTickets(ctx, orderModel.ID)
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf(
			"CRITICAL: order %s cancelled but ticket sweep failed, needs reconciliation: %v", orderModel.ID, err))
	} else if len(items) > 0 {
		if err := s.Inventory.ReleaseAll(ctx, items); err != nil {
			s.Logger.Error("ORDER", fmt.Sprintf(
				"CRITICAL: order %s cancelled but release failed, needs reconciliation: %v", orderModel.ID, err))
		}
	}

	monitoring.OrderFinalized(models.OrderStatusCancelled)
	s.Logger.LogOrder("CANCEL", orderModel.ID, "Payment failed, inventory released")
	s.Notifier.Notify(orderModel.UserID, models.NotificationOrderCancelled, map[string]string{
		"order_id": orderModel.ID,
	})

	return &orderModel, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.OrderWithTickets, error) {
	return s.DB.GetOrderWithTickets(ctx, orderID)
}

func (s *Service) GetUserOrders(ctx context.Context, userID string) ([]models.OrderWithTickets, error) {
	return s.DB.GetUserOrders(ctx, userID)
}

func (s *Service) reserveWithRetry(ctx context.Context, items []models.LineItem) error {
	var err error
	for attempt := 0; attempt <= s.ReserveRetries; attempt++ {
		err = s.Inventory.ReserveAll(ctx, items)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errs.ErrConcurrencyConflict) {
			return err
		}
		s.Logger.Warn("ORDER", fmt.Sprintf("Reservation conflict, attempt %d of %d", attempt+1, s.ReserveRetries+1))
	}
	return err
}

func (s *Service) compensate(ctx context.Context, items []models.LineItem, cause string) {
	if err := s.Inventory.ReleaseAll(ctx, items); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf(
			"CRITICAL: compensating release after %s failed, needs reconciliation: %v", cause, err))
	}
}

// computeTotal prices the order server-side. Every line item must belong
// to the requested event; a type from another event would move that other
// event's counters while the tickets claim this one.
func (s *Service) computeTotal(ctx context.Context, eventID string, items []models.LineItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		ticketType, err := s.Inventory.GetTicketType(ctx, item.TicketTypeID)
		if err != nil {
			return decimal.Zero, err
		}
		if ticketType.EventID != eventID {
			return decimal.Zero, fmt.Errorf("ticket type %s does not belong to event %s: %w",
				item.TicketTypeID, eventID, errs.ErrNotFound)
		}
		total = total.Add(ticketType.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

// mergeLineItems folds duplicate ticket types into one item so reservation
// locks each type once.
func mergeLineItems(items []models.LineItem) ([]models.LineItem, error) {
	merged := make(map[string]int)
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("line item quantity must be at least 1, got %d", item.Quantity)
		}
		if item.TicketTypeID == "" {
			return nil, fmt.Errorf("line item requires a ticket type")
		}
		if _, seen := merged[item.TicketTypeID]; !seen {
			order = append(order, item.TicketTypeID)
		}
		merged[item.TicketTypeID] += item.Quantity
	}

	result := make([]models.LineItem, 0, len(merged))
	for _, ticketTypeID := range order {
		result = append(result, models.LineItem{TicketTypeID: ticketTypeID, Quantity: merged[ticketTypeID]})
	}
	return result, nil
}
