package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// daysRemainingExpr yields whole days until the shelf life runs out.
const daysRemainingExpr = `((b.harvest_date + b.estimated_shelf_life) - CURRENT_DATE)`

const batchColumns = `b.id, b.variety, b.quantity_kg, b.harvest_date, b.source_farm, b.storage_location,
	b.estimated_shelf_life, b.quality_grade, b.temperature_requirement, b.humidity_requirement,
	b.temperature_actual, b.humidity_actual, b.status, b.spoilage_risk, ` + daysRemainingExpr + `,
	b.destination, b.transportation_type, b.expected_delivery_date, b.created_at, b.updated_at`

// batchRow is a scanned batch whose stored text columns are not decoded yet.
type batchRow struct {
	batch             models.Batch
	tempReq, humidReq string
	status, risk      string
}

func scanBatchRow(row pgx.Row) (batchRow, error) {
	var r batchRow
	b := &r.batch
	err := row.Scan(
		&b.ID, &b.Variety, &b.QuantityKg, &b.HarvestDate, &b.SourceFarm, &b.StorageLocation,
		&b.EstimatedShelfLifeDays, &b.QualityGrade, &r.tempReq, &r.humidReq,
		&b.TemperatureActual, &b.HumidityActual, &r.status, &r.risk, &b.DaysRemaining,
		&b.Destination, &b.TransportationType, &b.ExpectedDeliveryDate, &b.CreatedAt, &b.UpdatedAt,
	)
	return r, err
}

// decode parses the stored requirement ranges and enums.
func (r batchRow) decode() (models.Batch, error) {
	var err error
	b := r.batch
	if b.TemperatureRequirement, err = models.ParseRange("temperature_requirement", r.tempReq); err != nil {
		return models.Batch{}, fmt.Errorf("batch %d: %w", b.ID, err)
	}
	if b.HumidityRequirement, err = models.ParseRange("humidity_requirement", r.humidReq); err != nil {
		return models.Batch{}, fmt.Errorf("batch %d: %w", b.ID, err)
	}
	b.Status = models.BatchStatus(r.status)
	b.SpoilageRisk = models.RiskLevel(r.risk)
	return b, nil
}

func scanBatch(row pgx.Row) (models.Batch, error) {
	r, err := scanBatchRow(row)
	if err != nil {
		return models.Batch{}, err
	}
	return r.decode()
}

func (s *Store) collectBatches(rows pgx.Rows) ([]models.Batch, error) {
	defer rows.Close()

	var scanned []batchRow
	for rows.Next() {
		r, err := scanBatchRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return decodeBatches(scanned, s.logger), nil
}

// decodeBatches drops rows with unreadable stored values so one bad record
// cannot hide the rest of a listing.
func decodeBatches(scanned []batchRow, logger *zap.Logger) []models.Batch {
	batches := make([]models.Batch, 0, len(scanned))
	for _, r := range scanned {
		b, err := r.decode()
		if err != nil {
			logger.Warn("skipping unreadable batch", zap.Int64("batch_id", r.batch.ID), zap.Error(err))
			continue
		}
		batches = append(batches, b)
	}
	return batches
}

// CreateBatch inserts a batch and returns it as stored.
func (s *Store) CreateBatch(ctx context.Context, b models.Batch) (models.Batch, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO batches (
			variety, quantity_kg, harvest_date, source_farm, storage_location,
			estimated_shelf_life, quality_grade, temperature_requirement, humidity_requirement,
			temperature_actual, humidity_actual, status, spoilage_risk
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		b.Variety, b.QuantityKg, b.HarvestDate, b.SourceFarm, b.StorageLocation,
		b.EstimatedShelfLifeDays, b.QualityGrade, b.TemperatureRequirement.String(), b.HumidityRequirement.String(),
		b.TemperatureActual, b.HumidityActual, string(b.Status), string(b.SpoilageRisk),
	).Scan(&id)
	if err != nil {
		return models.Batch{}, fmt.Errorf("insert batch: %w", err)
	}

	s.logger.Debug("batch created", zap.Int64("batch_id", id))
	return s.GetBatch(ctx, id)
}

// GetBatch loads one batch.
func (s *Store) GetBatch(ctx context.Context, id int64) (models.Batch, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Batch{}, models.ErrBatchNotFound
	}
	if err != nil {
		return models.Batch{}, fmt.Errorf("get batch %d: %w", id, err)
	}
	return b, nil
}

// batchFilterQuery renders the WHERE clause for a listing.
func batchFilterQuery(filter models.BatchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("b.status = $%d", string(filter.Status))
	}
	if filter.Location != "" {
		add("b.storage_location = $%d", filter.Location)
	}
	if filter.DaysUntilExpiry != nil {
		add(daysRemainingExpr+" <= $%d", *filter.DaysUntilExpiry)
	}
	if filter.Variety != "" {
		add("b.variety = $%d", filter.Variety)
	}
	if filter.QualityGrade != "" {
		add("b.quality_grade = $%d", filter.QualityGrade)
	}

	query := `SELECT ` + batchColumns + ` FROM batches b`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	return query + ` ORDER BY b.created_at DESC`, args
}

// ListBatches returns batches matching filter, newest first.
func (s *Store) ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	query, args := batchFilterQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return s.collectBatches(rows)
}

// ListByStatus returns batches in any of the given statuses, soonest expiry first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...models.BatchStatus) ([]models.Batch, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM batches b
		WHERE b.status = ANY($1)
		ORDER BY `+daysRemainingExpr+` ASC, b.id ASC`, names)
	if err != nil {
		return nil, fmt.Errorf("list batches by status: %w", err)
	}
	return s.collectBatches(rows)
}

// AtRiskBatches returns stored or pending batches that expire within days or
// already carry a medium or high risk.
func (s *Store) AtRiskBatches(ctx context.Context, days int) ([]models.Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM batches b
		WHERE b.status IN ('in_storage', 'pending_shipment')
			AND (`+daysRemainingExpr+` <= $1 OR b.spoilage_risk IN ('medium', 'high'))
		ORDER BY `+daysRemainingExpr+` ASC, b.id ASC`, days)
	if err != nil {
		return nil, fmt.Errorf("list at-risk batches: %w", err)
	}
	return s.collectBatches(rows)
}

// UpdateBatch locks the batch, asks prepare for the update to apply and writes
// its non-nil fields. A quantity change is recorded as an inventory log in the
// same transaction. It returns the batch as it was before and after the update.
func (s *Store) UpdateBatch(ctx context.Context, id int64, performedBy string, prepare models.BatchUpdateFunc) (models.Batch, models.Batch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Batch{}, models.Batch{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanBatch(tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Batch{}, models.Batch{}, models.ErrBatchNotFound
	}
	if err != nil {
		return models.Batch{}, models.Batch{}, fmt.Errorf("lock batch %d: %w", id, err)
	}

	update, err := prepare(current)
	if err != nil {
		return models.Batch{}, models.Batch{}, err
	}

	var status, risk *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}
	if update.SpoilageRisk != nil {
		v := string(*update.SpoilageRisk)
		risk = &v
	}

	_, err = tx.Exec(ctx, `
		UPDATE batches SET
			quantity_kg        = COALESCE($2, quantity_kg),
			storage_location   = COALESCE($3, storage_location),
			status             = COALESCE($4, status),
			quality_grade      = COALESCE($5, quality_grade),
			temperature_actual = COALESCE($6, temperature_actual),
			humidity_actual    = COALESCE($7, humidity_actual),
			spoilage_risk      = COALESCE($8, spoilage_risk),
			updated_at         = CURRENT_TIMESTAMP
		WHERE id = $1`,
		id, update.QuantityKg, update.StorageLocation, status, update.QualityGrade,
		update.TemperatureActual, update.HumidityActual, risk,
	)
	if err != nil {
		return models.Batch{}, models.Batch{}, fmt.Errorf("update batch %d: %w", id, err)
	}

	if entry := models.AdjustmentLog(current, update, performedBy); entry != nil {
		if _, err := insertLog(ctx, tx, *entry); err != nil {
			return models.Batch{}, models.Batch{}, err
		}
	}

	updated, err := scanBatch(tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = $1`, id))
	if err != nil {
		return models.Batch{}, models.Batch{}, fmt.Errorf("reload batch %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Batch{}, models.Batch{}, fmt.Errorf("commit batch update: %w", err)
	}
	return current, updated, nil
}

// UpdateRisk persists a refined risk category.
func (s *Store) UpdateRisk(ctx context.Context, id int64, risk models.RiskLevel) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE batches SET spoilage_risk = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, string(risk))
	if err != nil {
		return fmt.Errorf("update risk for batch %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBatchNotFound
	}
	return nil
}

// DeleteBatch removes a batch with its logs and shipments.
func (s *Store) DeleteBatch(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBatchNotFound
	}
	return nil
}

// MarkForDistribution moves a batch to pending_shipment and schedules its shipment.
func (s *Store) MarkForDistribution(ctx context.Context, id int64, req models.ShipmentRequest) (models.Batch, models.Shipment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Batch{}, models.Shipment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var expected *time.Time
	if req.ExpectedDeliveryDate != nil {
		d := req.ExpectedDeliveryDate.UTC()
		expected = &d
	}

	tag, err := tx.Exec(ctx, `
		UPDATE batches SET
			status = $2,
			destination = $3,
			transportation_type = $4,
			expected_delivery_date = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		id, string(models.StatusPendingShipment), req.Destination, req.TransportationType, expected,
	)
	if err != nil {
		return models.Batch{}, models.Shipment{}, fmt.Errorf("mark batch %d for distribution: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.Batch{}, models.Shipment{}, models.ErrBatchNotFound
	}

	shipment := models.Shipment{
		BatchID:              id,
		Destination:          req.Destination,
		TransportationType:   req.TransportationType,
		ExpectedDeliveryDate: expected,
		Status:               models.ShipmentScheduled,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO shipments (batch_id, destination, transportation_type, expected_delivery_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		id, req.Destination, req.TransportationType, expected, string(models.ShipmentScheduled),
	).Scan(&shipment.ID, &shipment.CreatedAt, &shipment.UpdatedAt)
	if err != nil {
		return models.Batch{}, models.Shipment{}, fmt.Errorf("insert shipment: %w", err)
	}

	batch, err := scanBatch(tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches b WHERE b.id = $1`, id))
	if err != nil {
		return models.Batch{}, models.Shipment{}, fmt.Errorf("reload batch %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Batch{}, models.Shipment{}, fmt.Errorf("commit distribution: %w", err)
	}
	return batch, shipment, nil
}
