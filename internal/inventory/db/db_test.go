package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/errs"
	"ms-booking/internal/inventory/db"
	"ms-booking/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	_, err = bunDB.NewCreateTable().Model((*models.Event)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewCreateTable().Model((*models.TicketType)(nil)).Exec(ctx)
	require.NoError(t, err)

	return &db.DB{Bun: bunDB}, bunDB
}

func seed(t *testing.T, bunDB *bun.DB, event models.Event, ticketType models.TicketType) {
	ctx := context.Background()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if ticketType.CreatedAt.IsZero() {
		ticketType.CreatedAt = time.Now()
	}
	_, err := bunDB.NewInsert().Model(&event).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&ticketType).Exec(ctx)
	require.NoError(t, err)
}

func counters(t *testing.T, bunDB *bun.DB, eventID, typeID string) (available, sold int) {
	ctx := context.Background()
	var ticketType models.TicketType
	require.NoError(t, bunDB.NewSelect().Model(&ticketType).Where("id = ?", typeID).Scan(ctx))
	var event models.Event
	require.NoError(t, bunDB.NewSelect().Model(&event).Where("id = ?", eventID).Scan(ctx))
	return ticketType.Available, event.TicketsSold
}

func TestReserveDecrementsBothCounters(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 0},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 10, MaxPerOrder: 5},
	)

	err := store.Reserve(context.Background(), "event-1", "type-1", 3)
	assert.NoError(t, err)

	available, sold := counters(t, bunDB, "event-1", "type-1")
	assert.Equal(t, 7, available)
	assert.Equal(t, 3, sold)
}

func TestReserveDeniesBeyondAvailable(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 0},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 2, MaxPerOrder: 5},
	)

	err := store.Reserve(context.Background(), "event-1", "type-1", 3)
	assert.ErrorIs(t, err, errs.ErrInsufficientCapacity)

	available, sold := counters(t, bunDB, "event-1", "type-1")
	assert.Equal(t, 2, available)
	assert.Equal(t, 0, sold)
}

func TestReserveDeniedByEventCapacityLeavesTypeUntouched(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	// Aggregate type quantity can exceed event capacity on legacy data;
	// the event counter is the hard cap.
	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 98},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 20, Available: 10, MaxPerOrder: 5},
	)

	err := store.Reserve(context.Background(), "event-1", "type-1", 3)
	assert.ErrorIs(t, err, errs.ErrInsufficientCapacity)

	// The rolled-back transaction must restore the available counter too.
	available, sold := counters(t, bunDB, "event-1", "type-1")
	assert.Equal(t, 10, available)
	assert.Equal(t, 98, sold)
}

func TestReleaseRestoresBothCounters(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 5},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 5, MaxPerOrder: 5},
	)

	err := store.Release(context.Background(), "event-1", "type-1", 2)
	assert.NoError(t, err)

	available, sold := counters(t, bunDB, "event-1", "type-1")
	assert.Equal(t, 7, available)
	assert.Equal(t, 3, sold)
}

func TestReleaseCannotExceedQuantity(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 1},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 9, MaxPerOrder: 5},
	)

	err := store.Release(context.Background(), "event-1", "type-1", 2)
	assert.Error(t, err)

	available, sold := counters(t, bunDB, "event-1", "type-1")
	assert.Equal(t, 9, available)
	assert.Equal(t, 1, sold)
}

func TestCreateTicketTypeRespectsEventCapacity(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 80, Available: 80, MaxPerOrder: 5},
	)

	created, err := store.CreateTicketType(context.Background(), models.TicketType{
		EventID:     "event-1",
		Name:        "VIP",
		Quantity:    20,
		MaxPerOrder: 2,
	})
	assert.NoError(t, err)
	assert.Equal(t, 20, created.Available)

	_, err = store.CreateTicketType(context.Background(), models.TicketType{
		EventID:     "event-1",
		Name:        "Backstage",
		Quantity:    1,
		MaxPerOrder: 1,
	})
	assert.ErrorIs(t, err, errs.ErrInsufficientCapacity)
}

func TestGetTicketTypeNotFound(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.GetTicketType(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func intPtr(v int) *int { return &v }

func TestUpdateTicketTypeQuantityGrowthRaisesAvailable(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 3},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 7, MaxPerOrder: 5},
	)

	updated, err := store.UpdateTicketType(context.Background(), "type-1", models.TicketTypeUpdate{
		Quantity: intPtr(15),
	})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Quantity)
	assert.Equal(t, 12, updated.Available)
}

func TestUpdateTicketTypeCannotShrinkBelowReserved(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 7},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 3, MaxPerOrder: 5},
	)

	_, err := store.UpdateTicketType(context.Background(), "type-1", models.TicketTypeUpdate{
		Quantity: intPtr(5),
	})
	assert.ErrorIs(t, err, errs.ErrInsufficientCapacity)

	available, _ := counters(t, bunDB, "event-1", "type-1")
	assert.Equal(t, 3, available)
}

func TestUpdateTicketTypeRespectsEventCapacity(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 80, Available: 80, MaxPerOrder: 5},
	)
	vip := models.TicketType{ID: "type-2", EventID: "event-1", Name: "VIP", Quantity: 20, Available: 20, MaxPerOrder: 2, CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&vip).Exec(context.Background())
	require.NoError(t, err)

	_, err = store.UpdateTicketType(context.Background(), "type-2", models.TicketTypeUpdate{
		Quantity: intPtr(25),
	})
	assert.ErrorIs(t, err, errs.ErrInsufficientCapacity)
}

func TestUpdateTicketTypePriceAndLimitLeaveCountersAlone(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seed(t, bunDB,
		models.Event{ID: "event-1", Name: "Show", Date: time.Now().Add(24 * time.Hour), Capacity: 100, TicketsSold: 3},
		models.TicketType{ID: "type-1", EventID: "event-1", Name: "Standard", Quantity: 10, Available: 7, MaxPerOrder: 5},
	)

	newPrice := decimal.RequireFromString("75.00")
	updated, err := store.UpdateTicketType(context.Background(), "type-1", models.TicketTypeUpdate{
		Price:       &newPrice,
		MaxPerOrder: intPtr(2),
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, 2, updated.MaxPerOrder)
	assert.Equal(t, 10, updated.Quantity)
	assert.Equal(t, 7, updated.Available)
}

func TestUpdateTicketTypeNotFound(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.UpdateTicketType(context.Background(), "missing", models.TicketTypeUpdate{
		Quantity: intPtr(5),
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
