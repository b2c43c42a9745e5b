package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"ms-booking/internal/errs"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/monitoring"
)

type Store interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	CreateTicketType(ctx context.Context, ticketType models.TicketType) (*models.TicketType, error)
	UpdateTicketType(ctx context.Context, id string, update models.TicketTypeUpdate) (*models.TicketType, error)
	Reserve(ctx context.Context, eventID, ticketTypeID string, quantity int) error
	Release(ctx context.Context, eventID, ticketTypeID string, quantity int) error
}

type TypeLock interface {
	LockType(ctx context.Context, ticketTypeID, owner string) (bool, error)
	UnlockType(ctx context.Context, ticketTypeID, owner string) error
}

type Availability struct {
	Available bool `json:"available"`
	Remaining int  `json:"remaining"`
}

// Service is the only component allowed to mutate availability counters.
type Service struct {
	Store  Store
	Lock   TypeLock
	Logger *logger.Logger
}

func NewService(store Store, lock TypeLock, log *logger.Logger) *Service {
	return &Service{Store: store, Lock: lock, Logger: log}
}

// Reserve grants or denies quantity units of one ticket type. A grant
// decrements the type's available pool and increments the event's sold
// counter as one atomic unit. Requests that cannot be satisfied immediately
// are denied, never queued.
func (s *Service) Reserve(ctx context.Context, ticketTypeID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve quantity must be at least 1, got %d", quantity)
	}

	ticketType, err := s.Store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		monitoring.ReservationDenied(ticketTypeID, "not_found")
		return err
	}
	if quantity > ticketType.MaxPerOrder {
		monitoring.ReservationDenied(ticketTypeID, "limit_exceeded")
		return fmt.Errorf("maximum %d tickets per order: %w", ticketType.MaxPerOrder, errs.ErrPerOrderLimitExceeded)
	}

	owner := uuid.NewString()
	ok, err := s.Lock.LockType(ctx, ticketTypeID, owner)
	if err != nil {
		return fmt.Errorf("failed to lock ticket type %s: %w", ticketTypeID, err)
	}
	if !ok {
		monitoring.ReservationDenied(ticketTypeID, "conflict")
		return fmt.Errorf("ticket type %s is being reserved by another order: %w", ticketTypeID, errs.ErrConcurrencyConflict)
	}
	defer func() {
		if err := s.Lock.UnlockType(ctx, ticketTypeID, owner); err != nil {
			s.Logger.Error("INVENTORY", fmt.Sprintf("Failed to unlock ticket type %s: %v", ticketTypeID, err))
		}
	}()

	if err := s.Store.Reserve(ctx, ticketType.EventID, ticketTypeID, quantity); err != nil {
		if errors.Is(err, errs.ErrInsufficientCapacity) {
			monitoring.ReservationDenied(ticketTypeID, "insufficient")
		}
		return err
	}

	monitoring.ReservationGranted(ticketTypeID)
	s.Logger.LogInventory("RESERVE", ticketTypeID, fmt.Sprintf("Granted %d tickets", quantity))
	return nil
}

// Release returns quantity units to the pool. Callers must only release
// what they successfully reserved; a failure here is a capacity leak and is
// logged as such before it surfaces.
func (s *Service) Release(ctx context.Context, ticketTypeID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("release quantity must be at least 1, got %d", quantity)
	}

	ticketType, err := s.Store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return err
	}

	if err := s.Store.Release(ctx, ticketType.EventID, ticketTypeID, quantity); err != nil {
		s.Logger.Error("INVENTORY", fmt.Sprintf(
			"CRITICAL: failed to release %d tickets of type %s, counters need reconciliation: %v",
			quantity, ticketTypeID, err))
		return fmt.Errorf("failed to release %d tickets of type %s: %w", quantity, ticketTypeID, err)
	}

	s.Logger.LogInventory("RELEASE", ticketTypeID, fmt.Sprintf("Released %d tickets", quantity))
	return nil
}

func (s *Service) CheckAvailability(ctx context.Context, ticketTypeID string, quantity int) (*Availability, error) {
	ticketType, err := s.Store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Available: ticketType.Available >= quantity,
		Remaining: ticketType.Available,
	}, nil
}

// ReserveAll grants every line item or none. Types are taken in ascending
// ID order so two concurrent multi-item orders cannot deadlock on each
// other's locks. On any denial the already-granted prefix is released
// before the error surfaces.
func (s *Service) ReserveAll(ctx context.Context, items []models.LineItem) error {
	sorted := make([]models.LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TicketTypeID < sorted[j].TicketTypeID })

	granted := make([]models.LineItem, 0, len(sorted))
	for _, item := range sorted {
		if err := s.Reserve(ctx, item.TicketTypeID, item.Quantity); err != nil {
			s.rollback(ctx, granted)
			return err
		}
		granted = append(granted, item)
	}
	return nil
}

// ReleaseAll returns every line item's units to their pools. Used by the
// orchestrator when compensating a cancelled or failed order.
func (s *Service) ReleaseAll(ctx context.Context, items []models.LineItem) error {
	var firstErr error
	for _, item := range items {
		if err := s.Release(ctx, item.TicketTypeID, item.Quantity); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) rollback(ctx context.Context, granted []models.LineItem) {
	for i := len(granted) - 1; i >= 0; i-- {
		if err := s.Release(ctx, granted[i].TicketTypeID, granted[i].Quantity); err != nil {
			s.Logger.Error("INVENTORY", fmt.Sprintf(
				"CRITICAL: rollback failed for ticket type %s, %d tickets leaked: %v",
				granted[i].TicketTypeID, granted[i].Quantity, err))
		}
	}
}

// CreateTicketType adds a priced quantity pool under an event.
func (s *Service) CreateTicketType(ctx context.Context, ticketType models.TicketType) (*models.TicketType, error) {
	if ticketType.Quantity < 0 {
		return nil, fmt.Errorf("ticket type quantity must not be negative, got %d", ticketType.Quantity)
	}
	if ticketType.MaxPerOrder < 1 {
		return nil, fmt.Errorf("ticket type max per order must be at least 1, got %d", ticketType.MaxPerOrder)
	}

	created, err := s.Store.CreateTicketType(ctx, ticketType)
	if err != nil {
		return nil, err
	}
	s.Logger.LogInventory("CREATE_TYPE", created.ID, fmt.Sprintf("Allotted %d tickets for event %s", created.Quantity, created.EventID))
	return created, nil
}

// UpdateTicketType adjusts price, quantity or per-order limit of an
// existing pool.
func (s *Service) UpdateTicketType(ctx context.Context, ticketTypeID string, update models.TicketTypeUpdate) (*models.TicketType, error) {
	if update.Quantity != nil && *update.Quantity < 0 {
		return nil, fmt.Errorf("ticket type quantity must not be negative, got %d", *update.Quantity)
	}
	if update.MaxPerOrder != nil && *update.MaxPerOrder < 1 {
		return nil, fmt.Errorf("ticket type max per order must be at least 1, got %d", *update.MaxPerOrder)
	}

	updated, err := s.Store.UpdateTicketType(ctx, ticketTypeID, update)
	if err != nil {
		return nil, err
	}
	s.Logger.LogInventory("UPDATE_TYPE", updated.ID, fmt.Sprintf("Quantity %d, available %d", updated.Quantity, updated.Available))
	return updated, nil
}

// GetEvent exposes the event lookup for the orchestrator's existence and
// date checks.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.Store.GetEvent(ctx, eventID)
}

// GetTicketType exposes the type lookup for order total computation.
func (s *Service) GetTicketType(ctx context.Context, ticketTypeID string) (*models.TicketType, error) {
	return s.Store.GetTicketType(ctx, ticketTypeID)
}
