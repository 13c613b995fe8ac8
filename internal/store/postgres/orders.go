package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
)

// OrderRepository implements shipping.OrderStore over the orders tables.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository creates an OrderRepository.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetOrder returns an order with its items, fetched in one query.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
		SELECT
			o.id, o.number, o.status, o.shipping_status, o.customer_name, o.customer_email,
			o.customer_phone, o.shipping_address, o.currency, o.total, o.tracking_number,
			o.shipping_cost, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'productId', oi.product_id,
						'name', oi.name,
						'quantity', oi.quantity,
						'unitPrice', oi.unit_price,
						'total', oi.total,
						'weight', oi.weight
					) ORDER BY oi.created_at
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id`

	var (
		o         domain.Order
		itemsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&o.ID,
		&o.Number,
		&o.Status,
		&o.ShippingStatus,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.ShippingAddress,
		&o.Currency,
		&o.Total,
		&o.TrackingNumber,
		&o.ShippingCost,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}

// MarkShipmentPreparing records the tracking number and cost of a new
// shipment on the order.
func (r *OrderRepository) MarkShipmentPreparing(ctx context.Context, orderID, trackingNumber string, cost float64) error {
	query := `
		UPDATE orders
		SET shipping_status = $1, tracking_number = $2, shipping_cost = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, domain.ShippingStatusPreparing, trackingNumber, cost, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("update order shipping status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return shipping.NotFound("order", orderID)
	}
	return nil
}

// UpdateStatus sets the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, status, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return shipping.NotFound("order", orderID)
	}
	return nil
}

var _ shipping.OrderStore = (*OrderRepository)(nil)
