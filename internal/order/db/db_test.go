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
	"ms-booking/internal/models"
	"ms-booking/internal/order/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	_, err = bunDB.NewCreateTable().Model((*models.Order)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewCreateTable().Model((*models.Ticket)(nil)).Exec(ctx)
	require.NoError(t, err)

	return &db.DB{Bun: bunDB}, bunDB
}

func pendingOrder(id, userID string) models.Order {
	total, _ := decimal.NewFromString("100.00")
	return models.Order{
		ID:        id,
		UserID:    userID,
		EventID:   "event-1",
		Total:     total,
		Status:    models.OrderStatusPending,
		CreatedAt: time.Now(),
	}
}

func ticketFor(orderID, ticketID string) models.Ticket {
	return models.Ticket{
		ID:           ticketID,
		OrderID:      orderID,
		EventID:      "event-1",
		TicketTypeID: "type-1",
		UserID:       "user-1",
		ScanToken:    "token-" + ticketID,
		Status:       models.TicketStatusValid,
		IssuedAt:     time.Now(),
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, store.CreateOrder(context.Background(), pendingOrder("order-1", "user-1")))

	order, err := store.GetOrderByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("100.00")))
}

func TestGetOrderNotFound(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateOrderStatusConditional(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, store.CreateOrder(context.Background(), pendingOrder("order-1", "user-1")))

	completed := pendingOrder("order-1", "user-1")
	completed.Status = models.OrderStatusCompleted
	completed.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateOrderStatus(context.Background(), completed, models.OrderStatusPending))

	order, err := store.GetOrderByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)

	cancelled := *order
	cancelled.Status = models.OrderStatusCancelled
	err = store.UpdateOrderStatus(context.Background(), cancelled, models.OrderStatusPending)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestDeleteOrderRemovesTickets(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateOrder(ctx, pendingOrder("order-1", "user-1")))
	first := ticketFor("order-1", "ticket-1")
	second := ticketFor("order-1", "ticket-2")
	_, err := bunDB.NewInsert().Model(&first).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&second).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteOrder(ctx, "order-1"))

	_, err = store.GetOrderByID(ctx, "order-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	count, err := bunDB.NewSelect().Model((*models.Ticket)(nil)).Where("order_id = ?", "order-1").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetOrderWithTickets(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateOrder(ctx, pendingOrder("order-1", "user-1")))
	ticket := ticketFor("order-1", "ticket-1")
	_, err := bunDB.NewInsert().Model(&ticket).Exec(ctx)
	require.NoError(t, err)

	result, err := store.GetOrderWithTickets(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", result.Order.ID)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, "ticket-1", result.Tickets[0].ID)
}

func TestGetUserOrdersNewestFirstWithTickets(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	older := pendingOrder("order-1", "user-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := pendingOrder("order-2", "user-1")
	require.NoError(t, store.CreateOrder(ctx, older))
	require.NoError(t, store.CreateOrder(ctx, newer))
	require.NoError(t, store.CreateOrder(ctx, pendingOrder("order-3", "user-2")))

	ticket := ticketFor("order-1", "ticket-1")
	_, err := bunDB.NewInsert().Model(&ticket).Exec(ctx)
	require.NoError(t, err)

	orders, err := store.GetUserOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-2", orders[0].Order.ID)
	assert.Empty(t, orders[0].Tickets)
	assert.Equal(t, "order-1", orders[1].Order.ID)
	assert.Len(t, orders[1].Tickets, 1)
}

func TestGetUserOrdersEmpty(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	orders, err := store.GetUserOrders(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
