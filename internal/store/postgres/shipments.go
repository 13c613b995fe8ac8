package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
)

// ShipmentRepository implements shipping.ShipmentStore.
type ShipmentRepository struct {
	db DBTX
}

// NewShipmentRepository creates a ShipmentRepository.
func NewShipmentRepository(db DBTX) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

const shipmentColumns = `
	id, COALESCE(order_id, ''), tracking_number, provider, service, price, currency,
	label_url, tracking_url, estimated_delivery, actual_delivery, weight,
	insurance, signature_required, cash_on_delivery, status, created_at, updated_at`

func scanShipment(row pgx.Row) (*domain.ShipmentRecord, error) {
	var (
		r        domain.ShipmentRecord
		provider string
		status   string
	)
	err := row.Scan(
		&r.ID,
		&r.OrderID,
		&r.TrackingNumber,
		&provider,
		&r.Service,
		&r.Price,
		&r.Currency,
		&r.LabelURL,
		&r.TrackingURL,
		&r.EstimatedDelivery,
		&r.ActualDelivery,
		&r.Weight,
		&r.Insurance,
		&r.SignatureRequired,
		&r.CashOnDelivery,
		&status,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Provider = shipper.Carrier(provider)
	r.Status = shipper.ShipmentStatus(status)
	return &r, nil
}

// CreateShipment inserts a shipment record.
func (r *ShipmentRepository) CreateShipment(ctx context.Context, s *domain.ShipmentRecord) error {
	query := `
		INSERT INTO shipments (id, order_id, tracking_number, provider, service, price, currency,
			label_url, tracking_url, estimated_delivery, actual_delivery, weight,
			insurance, signature_required, cash_on_delivery, status, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.OrderID,
		s.TrackingNumber,
		string(s.Provider),
		s.Service,
		s.Price,
		s.Currency,
		s.LabelURL,
		s.TrackingURL,
		s.EstimatedDelivery,
		s.ActualDelivery,
		s.Weight,
		s.Insurance,
		s.SignatureRequired,
		s.CashOnDelivery,
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetByTrackingNumber returns the newest shipment with trackingNumber.
func (r *ShipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.ShipmentRecord, error) {
	query := `SELECT` + shipmentColumns + `
		FROM shipments
		WHERE tracking_number = $1
		ORDER BY created_at DESC
		LIMIT 1`

	s, err := scanShipment(r.db.QueryRow(ctx, query, trackingNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.NotFound("shipment", trackingNumber)
		}
		return nil, fmt.Errorf("get shipment by tracking number: %w", err)
	}
	return s, nil
}

// ListByOrder returns the shipments of an order, newest first.
func (r *ShipmentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.ShipmentRecord, error) {
	query := `SELECT` + shipmentColumns + `
		FROM shipments
		WHERE order_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	records := []domain.ShipmentRecord{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		records = append(records, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipment rows: %w", err)
	}
	return records, nil
}

// LatestForOrder returns the newest shipment of an order.
func (r *ShipmentRepository) LatestForOrder(ctx context.Context, orderID string) (*domain.ShipmentRecord, error) {
	query := `SELECT` + shipmentColumns + `
		FROM shipments
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	s, err := scanShipment(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.NotFound("shipment for order", orderID)
		}
		return nil, fmt.Errorf("get latest shipment: %w", err)
	}
	return s, nil
}

// UpdateStatus overwrites the status of a shipment. Nil delivery dates keep
// their stored value.
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, shipmentID string, status shipper.ShipmentStatus, estimated, actual *time.Time) error {
	query := `
		UPDATE shipments
		SET status = $1,
			estimated_delivery = COALESCE($2, estimated_delivery),
			actual_delivery = COALESCE($3, actual_delivery),
			updated_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, string(status), estimated, actual, time.Now().UTC(), shipmentID)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return shipping.NotFound("shipment", shipmentID)
	}
	return nil
}

// AppendEvent inserts a tracking event. Events are never deduplicated.
func (r *ShipmentRepository) AppendEvent(ctx context.Context, e *domain.TrackingEvent) error {
	query := `
		INSERT INTO tracking_events (id, shipment_id, event_type, description, location, status, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.ShipmentID,
		e.EventType,
		e.Description,
		e.Location,
		string(e.Status),
		e.OccurredAt,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

// ListEvents returns the history of a shipment, oldest first.
func (r *ShipmentRepository) ListEvents(ctx context.Context, shipmentID string) ([]domain.TrackingEvent, error) {
	query := `
		SELECT id, shipment_id, event_type, description, location, status, occurred_at, created_at
		FROM tracking_events
		WHERE shipment_id = $1
		ORDER BY occurred_at ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query tracking events: %w", err)
	}
	defer rows.Close()

	events := []domain.TrackingEvent{}
	for rows.Next() {
		var (
			e      domain.TrackingEvent
			status string
		)
		if err := rows.Scan(&e.ID, &e.ShipmentID, &e.EventType, &e.Description, &e.Location, &status, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking event: %w", err)
		}
		e.Status = shipper.ShipmentStatus(status)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking event rows: %w", err)
	}
	return events, nil
}

var _ shipping.ShipmentStore = (*ShipmentRepository)(nil)
