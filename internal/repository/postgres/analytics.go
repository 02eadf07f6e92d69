package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

const activeStatuses = `('in_storage', 'pending_shipment')`

// InventoryTotals aggregates stock that has not shipped yet.
func (s *Store) InventoryTotals(ctx context.Context) (models.InventoryTotals, error) {
	var t models.InventoryTotals
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(b.quantity_kg), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE b.status = 'in_storage'),
			COUNT(*) FILTER (WHERE b.status = 'pending_shipment'),
			COUNT(*) FILTER (WHERE b.spoilage_risk = 'high'),
			COUNT(*) FILTER (WHERE b.spoilage_risk = 'medium'),
			COALESCE(AVG(`+daysRemainingExpr+`), 0)::float8
		FROM batches b
		WHERE b.status IN `+activeStatuses).Scan(
		&t.TotalKg, &t.TotalBatches, &t.BatchesInStorage, &t.BatchesPendingShipment,
		&t.HighRiskBatches, &t.MediumRiskBatches, &t.AvgDaysRemaining,
	)
	if err != nil {
		return models.InventoryTotals{}, fmt.Errorf("inventory totals: %w", err)
	}
	return t, nil
}

// LocationBreakdown groups active stock by storage location, largest first.
func (s *Store) LocationBreakdown(ctx context.Context) ([]models.LocationStock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			b.storage_location,
			COUNT(*),
			COALESCE(SUM(b.quantity_kg), 0),
			COALESCE(AVG(`+daysRemainingExpr+`), 0)::float8,
			COUNT(*) FILTER (WHERE b.spoilage_risk = 'high')
		FROM batches b
		WHERE b.status IN `+activeStatuses+`
		GROUP BY b.storage_location
		ORDER BY 3 DESC, 1 ASC`)
	if err != nil {
		return nil, fmt.Errorf("location breakdown: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LocationStock, error) {
		var l models.LocationStock
		err := row.Scan(&l.StorageLocation, &l.BatchCount, &l.TotalKg, &l.AvgDaysRemaining, &l.HighRiskBatches)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan location breakdown: %w", err)
	}
	return out, nil
}

// UsageByLocation sums active stock per storage location.
func (s *Store) UsageByLocation(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.storage_location, COALESCE(SUM(b.quantity_kg), 0)
		FROM batches b
		WHERE b.status IN `+activeStatuses+`
		GROUP BY b.storage_location`)
	if err != nil {
		return nil, fmt.Errorf("usage by location: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]float64)
	for rows.Next() {
		var (
			location string
			kg       float64
		)
		if err := rows.Scan(&location, &kg); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		usage[location] = kg
	}
	return usage, rows.Err()
}

// LocationConditions averages the readings of active batches per location.
// Batches without both readings are ignored.
func (s *Store) LocationConditions(ctx context.Context) ([]models.LocationConditions, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			b.storage_location,
			AVG(b.temperature_actual)::float8,
			AVG(b.humidity_actual)::float8,
			COUNT(*),
			COALESCE(SUM(b.quantity_kg), 0)
		FROM batches b
		WHERE b.status IN `+activeStatuses+`
			AND b.temperature_actual IS NOT NULL
			AND b.humidity_actual IS NOT NULL
		GROUP BY b.storage_location
		ORDER BY b.storage_location`)
	if err != nil {
		return nil, fmt.Errorf("location conditions: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LocationConditions, error) {
		var c models.LocationConditions
		err := row.Scan(&c.StorageLocation, &c.AvgTemperature, &c.AvgHumidity, &c.BatchCount, &c.TotalKg)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan location conditions: %w", err)
	}
	return out, nil
}

// DailyMovements returns additions and removals for each of the last days
// days, oldest first, including days without movement. Balance is left zero.
func (s *Store) DailyMovements(ctx context.Context, days int) ([]models.TrendPoint, error) {
	rows, err := s.pool.Query(ctx, `
		WITH dates AS (
			SELECT generate_series((CURRENT_DATE - ($1::int - 1))::timestamp, CURRENT_DATE::timestamp, INTERVAL '1 day')::date AS date
		)
		SELECT
			d.date,
			COALESCE(SUM(il.quantity_kg) FILTER (WHERE il.action = 'addition'), 0),
			COALESCE(SUM(il.quantity_kg) FILTER (WHERE il.action = 'removal'), 0)
		FROM dates d
		LEFT JOIN inventory_logs il ON DATE(il.created_at) = d.date
		GROUP BY d.date
		ORDER BY d.date`, days)
	if err != nil {
		return nil, fmt.Errorf("daily movements: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TrendPoint, error) {
		var p models.TrendPoint
		err := row.Scan(&p.Date, &p.Additions, &p.Removals)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan daily movements: %w", err)
	}
	return out, nil
}

// ShipmentDimension selects the column shipments are grouped by.
type ShipmentDimension string

const (
	ShipmentByStatus      ShipmentDimension = "status"
	ShipmentByDestination ShipmentDimension = "destination"
	ShipmentByTransport   ShipmentDimension = "transportation_type"
)

var shipmentGroupOrder = map[ShipmentDimension]string{
	ShipmentByStatus: `CASE s.status
		WHEN 'scheduled' THEN 1 WHEN 'in_transit' THEN 2
		WHEN 'delivered' THEN 3 WHEN 'cancelled' THEN 4 ELSE 5 END`,
	ShipmentByDestination: `3 DESC, 1 ASC`,
	ShipmentByTransport:   `3 DESC, 1 ASC`,
}

// ShipmentGroups counts shipments and the shipped quantity per dimension value.
func (s *Store) ShipmentGroups(ctx context.Context, dim ShipmentDimension) ([]models.GroupTotal, error) {
	order, ok := shipmentGroupOrder[dim]
	if !ok {
		return nil, fmt.Errorf("unsupported shipment dimension %q", dim)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.`+string(dim)+`, COUNT(*), COALESCE(SUM(b.quantity_kg), 0)
		FROM shipments s
		JOIN batches b ON s.batch_id = b.id
		GROUP BY s.`+string(dim)+`
		ORDER BY `+order)
	if err != nil {
		return nil, fmt.Errorf("shipment groups by %s: %w", dim, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GroupTotal, error) {
		var g models.GroupTotal
		err := row.Scan(&g.Key, &g.BatchCount, &g.TotalKg)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan shipment groups: %w", err)
	}
	return out, nil
}

// RecentShipments returns the latest shipments joined with their batch.
func (s *Store) RecentShipments(ctx context.Context, limit int) ([]models.RecentShipment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			s.id, s.batch_id, s.destination, s.transportation_type, s.expected_delivery_date,
			s.actual_delivery_date, s.status, s.notes, s.created_at, s.updated_at,
			b.variety, b.quantity_kg, b.quality_grade
		FROM shipments s
		JOIN batches b ON s.batch_id = b.id
		ORDER BY s.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent shipments: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RecentShipment, error) {
		var (
			r      models.RecentShipment
			status string
		)
		err := row.Scan(
			&r.ID, &r.BatchID, &r.Destination, &r.TransportationType, &r.ExpectedDeliveryDate,
			&r.ActualDeliveryDate, &status, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
			&r.Variety, &r.QuantityKg, &r.QualityGrade,
		)
		r.Status = models.ShipmentStatus(status)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent shipments: %w", err)
	}
	return out, nil
}
