package sheets

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/anilytics/agriwarehouse/internal/config"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// PlanSheet is the tab that receives exported distribution plans.
const PlanSheet = "DistributionPlans"

var planHeader = []interface{}{"generated_at", "report_id", "source", "priority", "channel", "allocated_kg", "batches", "reason"}

// Repository defines the persistence operations supported by the Google Sheets adapter.
type Repository interface {
	WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRows appends the provided rows to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// PlanExporter appends distribution plans to the plan sheet.
type PlanExporter struct {
	repo   Repository
	logger *zap.Logger
}

// NewPlanExporter wraps a sheet repository.
func NewPlanExporter(repo Repository, logger *zap.Logger) *PlanExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanExporter{repo: repo, logger: logger}
}

// ExportPlan writes one row per allocated channel, adding the header to an empty sheet.
func (e *PlanExporter) ExportPlan(ctx context.Context, reportID string, plan models.DistributionPlan) error {
	existing, err := e.repo.ReadRange(ctx, PlanSheet+"!A1:H1")
	if err != nil {
		return err
	}

	rows := PlanRows(reportID, plan)
	if len(existing) == 0 {
		rows = append([][]interface{}{planHeader}, rows...)
	}

	if err := e.repo.WriteRows(ctx, PlanSheet+"!A:H", rows); err != nil {
		return err
	}

	e.logger.Info("distribution plan exported", zap.String("report_id", reportID), zap.Int("rows", len(rows)))
	return nil
}

// PlanRows flattens a plan into sheet rows, ordering channels by name.
func PlanRows(reportID string, plan models.DistributionPlan) [][]interface{} {
	generated := plan.GeneratedAt.Format(time.RFC3339)
	rows := make([][]interface{}, 0, len(plan.Recommendations)*2)
	for _, rec := range plan.Recommendations {
		channels := make([]string, 0, len(rec.Allocation))
		for name := range rec.Allocation {
			channels = append(channels, name)
		}
		sort.Strings(channels)

		batchIDs := fmt.Sprint(rec.Batches)
		for _, name := range channels {
			rows = append(rows, []interface{}{
				generated,
				reportID,
				plan.Source,
				rec.Priority,
				name,
				rec.Allocation[name],
				batchIDs,
				rec.Reason,
			})
		}
	}
	return rows
}
