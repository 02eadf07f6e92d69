package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

const logColumns = `il.id, il.batch_id, il.action, il.quantity_kg, il.reason, il.performed_by, il.notes,
	b.variety, b.source_farm, il.created_at, il.updated_at`

func scanLog(row pgx.Row) (models.InventoryLog, error) {
	var (
		l      models.InventoryLog
		action string
	)
	err := row.Scan(&l.ID, &l.BatchID, &action, &l.QuantityKg, &l.Reason, &l.PerformedBy, &l.Notes,
		&l.Variety, &l.SourceFarm, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return models.InventoryLog{}, err
	}
	l.Action = models.InventoryAction(action)
	return l, nil
}

func collectLogs(rows pgx.Rows) ([]models.InventoryLog, error) {
	defer rows.Close()

	logs := make([]models.InventoryLog, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory logs: %w", err)
	}
	return logs, nil
}

func insertLog(ctx context.Context, tx pgx.Tx, entry models.InventoryLog) (int64, error) {
	performedBy := entry.PerformedBy
	if performedBy == "" {
		performedBy = "system"
	}

	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_logs (batch_id, action, quantity_kg, reason, performed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		entry.BatchID, string(entry.Action), entry.QuantityKg, entry.Reason, performedBy, entry.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert inventory log: %w", err)
	}
	return id, nil
}

// RecordMovement stores a log entry and applies additions or removals to the
// batch quantity atomically.
func (s *Store) RecordMovement(ctx context.Context, entry models.InventoryLog) (models.InventoryLog, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.InventoryLog{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current float64
	err = tx.QueryRow(ctx, `SELECT quantity_kg FROM batches WHERE id = $1 FOR UPDATE`, entry.BatchID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.InventoryLog{}, models.ErrBatchNotFound
	}
	if err != nil {
		return models.InventoryLog{}, fmt.Errorf("lock batch %d: %w", entry.BatchID, err)
	}

	next, err := models.ApplyMovement(current, entry.Action, entry.QuantityKg)
	if err != nil {
		return models.InventoryLog{}, err
	}

	id, err := insertLog(ctx, tx, entry)
	if err != nil {
		return models.InventoryLog{}, err
	}

	if next != current {
		_, err = tx.Exec(ctx, `
			UPDATE batches SET quantity_kg = $2, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`, entry.BatchID, next)
		if err != nil {
			return models.InventoryLog{}, fmt.Errorf("apply movement to batch %d: %w", entry.BatchID, err)
		}
	}

	stored, err := scanLog(tx.QueryRow(ctx, `
		SELECT `+logColumns+`
		FROM inventory_logs il LEFT JOIN batches b ON il.batch_id = b.id
		WHERE il.id = $1`, id))
	if err != nil {
		return models.InventoryLog{}, fmt.Errorf("reload inventory log %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.InventoryLog{}, fmt.Errorf("commit movement: %w", err)
	}

	s.logger.Debug("inventory movement recorded",
		zap.Int64("batch_id", entry.BatchID),
		zap.String("action", string(entry.Action)),
		zap.Float64("quantity_before", current),
		zap.Float64("quantity_after", next),
	)
	return stored, nil
}

// logFilterQuery renders the log listing for filter.
func logFilterQuery(filter models.InventoryLogFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.BatchID != nil {
		add("il.batch_id = $%d", *filter.BatchID)
	}
	if filter.Action != "" {
		add("il.action = $%d", string(filter.Action))
	}
	if filter.StartDate != nil {
		add("il.created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("il.created_at <= $%d", *filter.EndDate)
	}

	query := `SELECT ` + logColumns + ` FROM inventory_logs il LEFT JOIN batches b ON il.batch_id = b.id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	return query + ` ORDER BY il.created_at DESC`, args
}

// ListLogs returns log entries matching filter, newest first.
func (s *Store) ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, error) {
	query, args := logFilterQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	return collectLogs(rows)
}

// RecentLogs returns the latest limit entries.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]models.InventoryLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+logColumns+`
		FROM inventory_logs il LEFT JOIN batches b ON il.batch_id = b.id
		ORDER BY il.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent inventory logs: %w", err)
	}
	return collectLogs(rows)
}

// GetLog loads one log entry.
func (s *Store) GetLog(ctx context.Context, id int64) (models.InventoryLog, error) {
	l, err := scanLog(s.pool.QueryRow(ctx, `
		SELECT `+logColumns+`
		FROM inventory_logs il LEFT JOIN batches b ON il.batch_id = b.id
		WHERE il.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.InventoryLog{}, models.ErrInventoryLogNotFound
	}
	if err != nil {
		return models.InventoryLog{}, fmt.Errorf("get inventory log %d: %w", id, err)
	}
	return l, nil
}

// UpdateLog corrects the reason or notes of an entry. Quantities and actions are immutable.
func (s *Store) UpdateLog(ctx context.Context, id int64, update models.InventoryLogUpdate) (models.InventoryLog, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE inventory_logs SET
			reason = COALESCE($2, reason),
			notes = COALESCE($3, notes),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, update.Reason, update.Notes)
	if err != nil {
		return models.InventoryLog{}, fmt.Errorf("update inventory log %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.InventoryLog{}, models.ErrInventoryLogNotFound
	}
	return s.GetLog(ctx, id)
}
