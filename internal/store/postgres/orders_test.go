package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
)

var orderCols = []string{
	"id", "number", "status", "shipping_status", "customer_name", "customer_email",
	"customer_phone", "shipping_address", "currency", "total", "tracking_number",
	"shipping_cost", "created_at", "updated_at", "items",
}

func TestOrderRepository_GetOrder(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	itemsJSON, err := json.Marshal([]map[string]any{
		{"productId": "p1", "name": "Socks", "quantity": 2, "unitPrice": 10, "total": 20, "weight": 0.5},
		{"productId": "p2", "name": "Poster", "quantity": 1, "unitPrice": 15, "total": 15, "weight": nil},
	})
	require.NoError(t, err)

	rows := pgxmock.NewRows(orderCols).AddRow(
		"ORD-100", "100", "paid", "", "Jane Doe", "jane@example.com",
		"", `{"line1":"Invalidenstr. 116","city":"Berlin"}`, "EUR", 35.0, "",
		0.0, now, now, itemsJSON,
	)
	mock.ExpectQuery("FROM orders").WithArgs("ORD-100").WillReturnRows(rows)

	order, err := repo.GetOrder(context.Background(), "ORD-100")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", order.CustomerName)
	assert.Equal(t, 35.0, order.Total)
	require.Len(t, order.Items, 2)
	require.NotNil(t, order.Items[0].Weight)
	assert.Equal(t, 0.5, *order.Items[0].Weight)
	assert.Nil(t, order.Items[1].Weight, "unknown weight stays nil")

	weight, _ := shipping.AggregateItems(order.Items)
	assert.InDelta(t, 2.0, weight, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetOrder_NoItems(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(orderCols).AddRow(
		"ORD-200", "200", "paid", "", "", "", "", "Somewhere 1", "EUR", 10.0, "", 0.0, now, now, []byte("[]"),
	)
	mock.ExpectQuery("FROM orders").WithArgs("ORD-200").WillReturnRows(rows)

	order, err := repo.GetOrder(context.Background(), "ORD-200")
	require.NoError(t, err)
	assert.NotNil(t, order.Items)
	assert.Empty(t, order.Items)
}

func TestOrderRepository_GetOrder_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders").WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	order, err := repo.GetOrder(context.Background(), "nope")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, shipping.ErrNotFound)
	assert.EqualError(t, err, "order nope not found")
}

func TestOrderRepository_GetOrder_ScanError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders").WithArgs("ORD-100").WillReturnError(errors.New("connection reset"))

	_, err := repo.GetOrder(context.Background(), "ORD-100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan order")
}

func TestOrderRepository_MarkShipmentPreparing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.ShippingStatusPreparing, "JD0001", 12.5, pgxmock.AnyArg(), "ORD-100").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkShipmentPreparing(context.Background(), "ORD-100", "JD0001", 12.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "updated", affected: 1},
		{name: "missing order", affected: 0, wantErr: shipping.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewOrderRepository(mock)

			mock.ExpectExec("UPDATE orders").
				WithArgs(domain.OrderStatusDelivered, pgxmock.AnyArg(), "ORD-100").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err := repo.UpdateStatus(context.Background(), "ORD-100", domain.OrderStatusDelivered)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
