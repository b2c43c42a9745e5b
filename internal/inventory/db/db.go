package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-booking/internal/errs"
	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	var ticketType models.TicketType
	err := d.Bun.NewSelect().
		Model(&ticketType).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket type %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ticketType, nil
}

// CreateTicketType allots a new quantity pool under an event. The aggregate
// quantity across all of the event's types must stay within the event
// capacity, so one event can never be sold past its room.
func (d *DB) CreateTicketType(ctx context.Context, ticketType models.TicketType) (*models.TicketType, error) {
	if ticketType.ID == "" {
		ticketType.ID = uuid.NewString()
	}
	ticketType.Available = ticketType.Quantity
	if ticketType.CreatedAt.IsZero() {
		ticketType.CreatedAt = time.Now()
	}

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var event models.Event
		err := tx.NewSelect().
			Model(&event).
			Where("id = ?", ticketType.EventID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s: %w", ticketType.EventID, errs.ErrNotFound)
		}
		if err != nil {
			return err
		}

		var allotted int
		err = tx.NewSelect().
			Model((*models.TicketType)(nil)).
			ColumnExpr("COALESCE(SUM(quantity), 0)").
			Where("event_id = ?", ticketType.EventID).
			Scan(ctx, &allotted)
		if err != nil {
			return err
		}
		if allotted+ticketType.Quantity > event.Capacity {
			return fmt.Errorf("allotting %d tickets would exceed event capacity %d: %w",
				ticketType.Quantity, event.Capacity, errs.ErrInsufficientCapacity)
		}

		_, err = tx.NewInsert().Model(&ticketType).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ticketType, nil
}

// UpdateTicketType changes price, quantity or per-order limit. A quantity
// change moves the available counter by the same delta, so units already
// reserved stay reserved: quantity can grow within the event capacity and
// shrink no further than what is still unsold.
func (d *DB) UpdateTicketType(ctx context.Context, id string, update models.TicketTypeUpdate) (*models.TicketType, error) {
	var ticketType models.TicketType
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&ticketType).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ticket type %s: %w", id, errs.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if update.Quantity != nil && *update.Quantity != ticketType.Quantity {
			delta := *update.Quantity - ticketType.Quantity
			if delta > 0 {
				var event models.Event
				err := tx.NewSelect().
					Model(&event).
					Where("id = ?", ticketType.EventID).
					Limit(1).
					Scan(ctx)
				if err != nil {
					return err
				}

				var allotted int
				err = tx.NewSelect().
					Model((*models.TicketType)(nil)).
					ColumnExpr("COALESCE(SUM(quantity), 0)").
					Where("event_id = ? AND id != ?", ticketType.EventID, id).
					Scan(ctx, &allotted)
				if err != nil {
					return err
				}
				if allotted+*update.Quantity > event.Capacity {
					return fmt.Errorf("allotting %d tickets would exceed event capacity %d: %w",
						*update.Quantity, event.Capacity, errs.ErrInsufficientCapacity)
				}
			}
			if ticketType.Available+delta < 0 {
				sold := ticketType.Quantity - ticketType.Available
				return fmt.Errorf("cannot reduce quantity below %d already reserved tickets: %w",
					sold, errs.ErrInsufficientCapacity)
			}
			ticketType.Quantity = *update.Quantity
			ticketType.Available += delta
		}
		if update.Price != nil {
			ticketType.Price = *update.Price
		}
		if update.MaxPerOrder != nil {
			ticketType.MaxPerOrder = *update.MaxPerOrder
		}

		_, err = tx.NewUpdate().
			Model(&ticketType).
			Column("price", "quantity", "available", "max_per_order").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ticketType, nil
}

// Reserve applies both halves of a grant as one atomic unit: the type's
// available pool shrinks and the event's sold counter grows, or neither
// does. The conditional updates are the exclusion primitive; a plain
// read-check-write here would oversell under concurrency.
func (d *DB) Reserve(ctx context.Context, eventID, ticketTypeID string, quantity int) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.TicketType)(nil)).
			Set("available = available - ?", quantity).
			Where("id = ? AND available >= ?", ticketTypeID, quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("ticket type %s has fewer than %d available: %w",
				ticketTypeID, quantity, errs.ErrInsufficientCapacity)
		}

		res, err = tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("tickets_sold = tickets_sold + ?", quantity).
			Where("id = ? AND tickets_sold + ? <= capacity", eventID, quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Rolling back also restores the available counter above.
			return fmt.Errorf("event %s is at capacity: %w", eventID, errs.ErrInsufficientCapacity)
		}

		return nil
	})
}

// Release is the exact inverse of Reserve. The guards keep the counters
// inside their invariant ranges even if a caller releases something it
// should not have.
func (d *DB) Release(ctx context.Context, eventID, ticketTypeID string, quantity int) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.TicketType)(nil)).
			Set("available = available + ?", quantity).
			Where("id = ? AND available + ? <= quantity", ticketTypeID, quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("release of %d would exceed ticket type %s quantity", quantity, ticketTypeID)
		}

		res, err = tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("tickets_sold = tickets_sold - ?", quantity).
			Where("id = ? AND tickets_sold >= ?", eventID, quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("release of %d would drive event %s sold counter negative", quantity, eventID)
		}

		return nil
	})
}
