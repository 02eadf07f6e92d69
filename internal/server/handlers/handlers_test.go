package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anilytics/agriwarehouse/internal/domain/allocation"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/domain/risk"
	"github.com/anilytics/agriwarehouse/internal/service/alerts"
	"github.com/anilytics/agriwarehouse/internal/service/reporting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func perform(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(performedByHeader, "tester")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

type fakeBatches struct {
	filter      models.BatchFilter
	performedBy string
	shipment    models.ShipmentRequest
	atRiskDays  int
	err         error
}

func (f *fakeBatches) Create(_ context.Context, req models.NewBatchRequest) (models.Batch, error) {
	b, err := req.ToBatch()
	b.ID = 1
	return b, err
}

func (f *fakeBatches) Get(_ context.Context, id int64) (models.Batch, error) {
	if id != 1 {
		return models.Batch{}, models.ErrBatchNotFound
	}
	return models.Batch{ID: 1}, nil
}

func (f *fakeBatches) List(_ context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	f.filter = filter
	return []models.Batch{{ID: 1}}, f.err
}

func (f *fakeBatches) Update(_ context.Context, id int64, _ models.BatchUpdate, performedBy string) (models.Batch, error) {
	f.performedBy = performedBy
	return models.Batch{ID: id}, nil
}

func (f *fakeBatches) Delete(context.Context, int64) error { return nil }

func (f *fakeBatches) MarkForDistribution(_ context.Context, id int64, req models.ShipmentRequest) (models.Batch, models.Shipment, error) {
	f.shipment = req
	return models.Batch{ID: id, Status: models.StatusPendingShipment}, models.Shipment{ID: 9, BatchID: id, Status: models.ShipmentScheduled}, nil
}

func (f *fakeBatches) AtRisk(_ context.Context, days int) ([]models.Batch, error) {
	f.atRiskDays = days
	return []models.Batch{}, nil
}

func batchRouter(svc BatchService) *gin.Engine {
	h := NewBatchHandler(svc, nil)
	r := gin.New()
	r.GET("/batches", h.List)
	r.POST("/batches", h.Create)
	r.GET("/batches/risk/spoilage", h.AtRisk)
	r.GET("/batches/:id", h.Get)
	r.PUT("/batches/:id", h.Update)
	r.DELETE("/batches/:id", h.Delete)
	r.PUT("/batches/:id/distribution", h.MarkForDistribution)
	return r
}

func TestBatchListPassesFilter(t *testing.T) {
	svc := &fakeBatches{}
	w, env := perform(t, batchRouter(svc), http.MethodGet, "/batches?status=in_storage&location=Zone+A&daysUntilExpiry=4", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, models.StatusInStorage, svc.filter.Status)
	assert.Equal(t, "Zone A", svc.filter.Location)
	require.NotNil(t, svc.filter.DaysUntilExpiry)
	assert.Equal(t, 4, *svc.filter.DaysUntilExpiry)
}

func TestBatchListRejectsBadDays(t *testing.T) {
	w, env := perform(t, batchRouter(&fakeBatches{}), http.MethodGet, "/batches?daysUntilExpiry=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestBatchCreateValidation(t *testing.T) {
	w, env := perform(t, batchRouter(&fakeBatches{}), http.MethodPost, "/batches", map[string]any{
		"variety":                 "Cavendish",
		"quantity_kg":             500,
		"harvest_date":            "2024-05-20",
		"source_farm":             "Davao Farm",
		"storage_location":        "Zone A",
		"temperature_requirement": "13to15",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "temperature_requirement")

	w, env = perform(t, batchRouter(&fakeBatches{}), http.MethodPost, "/batches", map[string]any{
		"variety":          "Cavendish",
		"quantity_kg":      500,
		"harvest_date":     "2024-05-20",
		"source_farm":      "Davao Farm",
		"storage_location": "Zone A",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Batch
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.Range{Min: 13, Max: 15}, created.TemperatureRequirement)
}

func TestBatchGetNotFound(t *testing.T) {
	w, env := perform(t, batchRouter(&fakeBatches{}), http.MethodGet, "/batches/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrBatchNotFound.Error(), env.Message)

	w, _ = perform(t, batchRouter(&fakeBatches{}), http.MethodGet, "/batches/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchUpdateUsesPerformerHeader(t *testing.T) {
	svc := &fakeBatches{}
	w, _ := perform(t, batchRouter(svc), http.MethodPut, "/batches/3", map[string]any{"quantity_kg": 250})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tester", svc.performedBy)
}

func TestMarkForDistributionParsesDate(t *testing.T) {
	svc := &fakeBatches{}
	w, _ := perform(t, batchRouter(svc), http.MethodPut, "/batches/3/distribution", map[string]any{
		"destination":            "Manila",
		"transportation_type":    "refrigerated truck",
		"expected_delivery_date": "2024-06-03",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.shipment.ExpectedDeliveryDate)
	assert.Equal(t, "2024-06-03", svc.shipment.ExpectedDeliveryDate.Format("2006-01-02"))

	w, _ = perform(t, batchRouter(svc), http.MethodPut, "/batches/3/distribution", map[string]any{
		"destination":            "Manila",
		"transportation_type":    "truck",
		"expected_delivery_date": "next week",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAtRiskDefaultsWindow(t *testing.T) {
	svc := &fakeBatches{}
	perform(t, batchRouter(svc), http.MethodGet, "/batches/risk/spoilage", nil)
	assert.Equal(t, models.DefaultAtRiskWindowDays, svc.atRiskDays)

	perform(t, batchRouter(svc), http.MethodGet, "/batches/risk/spoilage?days=7", nil)
	assert.Equal(t, 7, svc.atRiskDays)
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	w, env := perform(t, batchRouter(&fakeBatches{err: errors.New("connection reset")}), http.MethodGet, "/batches", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", env.Message)
}

type fakeInventory struct {
	filter models.InventoryLogFilter
	req    models.NewInventoryLogRequest
}

func (f *fakeInventory) CreateLog(_ context.Context, req models.NewInventoryLogRequest) (models.InventoryLog, error) {
	f.req = req
	if req.QuantityKg > 100 {
		return models.InventoryLog{}, models.ErrInsufficientStock
	}
	return models.InventoryLog{ID: 1, BatchID: req.BatchID}, nil
}

func (f *fakeInventory) ListLogs(_ context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, error) {
	f.filter = filter
	return []models.InventoryLog{}, nil
}

func (f *fakeInventory) GetLog(context.Context, int64) (models.InventoryLog, error) {
	return models.InventoryLog{}, models.ErrInventoryLogNotFound
}

func (f *fakeInventory) UpdateLog(_ context.Context, id int64, _ models.InventoryLogUpdate) (models.InventoryLog, error) {
	return models.InventoryLog{ID: id}, nil
}

func (f *fakeInventory) Summary(context.Context) (models.InventorySummary, error) {
	return models.InventorySummary{}, nil
}

func (f *fakeInventory) StorageCapacity(context.Context) (models.StorageCapacity, error) {
	return models.StorageCapacity{TotalCapacityKg: 40000}, nil
}

func inventoryRouter(svc InventoryService) *gin.Engine {
	h := NewInventoryHandler(svc, nil)
	r := gin.New()
	r.GET("/logs", h.ListLogs)
	r.POST("/logs", h.CreateLog)
	r.GET("/logs/:id", h.GetLog)
	r.GET("/capacity", h.StorageCapacity)
	return r
}

func TestInventoryCreateLog(t *testing.T) {
	svc := &fakeInventory{}
	w, _ := perform(t, inventoryRouter(svc), http.MethodPost, "/logs", map[string]any{
		"batch_id": 4, "action": "removal", "quantity_kg": 20, "reason": "sold",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tester", svc.req.PerformedBy)

	w, env := perform(t, inventoryRouter(svc), http.MethodPost, "/logs", map[string]any{
		"batch_id": 4, "action": "removal", "quantity_kg": 500, "reason": "sold",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cannot remove more than available quantity", env.Message)
}

func TestInventoryListLogsFilter(t *testing.T) {
	svc := &fakeInventory{}
	w, _ := perform(t, inventoryRouter(svc), http.MethodGet, "/logs?batch_id=4&action=addition&startDate=2024-05-01", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.BatchID)
	assert.Equal(t, int64(4), *svc.filter.BatchID)
	assert.Equal(t, models.ActionAddition, svc.filter.Action)
	require.NotNil(t, svc.filter.StartDate)
	assert.Nil(t, svc.filter.EndDate)

	w, _ = perform(t, inventoryRouter(svc), http.MethodGet, "/logs?endDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryGetLogNotFound(t *testing.T) {
	w, _ := perform(t, inventoryRouter(&fakeInventory{}), http.MethodGet, "/logs/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeReports struct {
	limit int
}

func (f *fakeReports) SpoilageForecast(context.Context) (models.SpoilageForecast, error) {
	return models.SpoilageForecast{Summary: models.ForecastSummary{TotalAtRiskBatches: 2}}, nil
}

func (f *fakeReports) DistributionRecommendations(context.Context) (models.DistributionResponse, error) {
	return models.DistributionResponse{Plan: models.DistributionPlan{Source: models.PlanSourceRules}}, nil
}

func (f *fakeReports) DistributionHistory(_ context.Context, limit int) ([]models.DistributionReport, error) {
	f.limit = limit
	return nil, reporting.ErrArchiveDisabled
}

func (f *fakeReports) DistributionReport(context.Context, string) (models.DistributionReport, error) {
	return models.DistributionReport{}, reporting.ErrArchiveDisabled
}

func (f *fakeReports) StorageRecommendations(context.Context) (models.StorageReport, error) {
	return models.StorageReport{}, nil
}

func (f *fakeReports) InventoryAnalytics(context.Context) (models.InventoryAnalytics, error) {
	return models.InventoryAnalytics{}, nil
}

func (f *fakeReports) ShipmentAnalytics(context.Context) (models.ShipmentAnalytics, error) {
	return models.ShipmentAnalytics{}, nil
}

func TestReportHandlers(t *testing.T) {
	svc := &fakeReports{}
	h := NewReportHandler(svc, nil)
	r := gin.New()
	r.GET("/forecast", h.SpoilageForecast())
	r.GET("/history", h.DistributionHistory)

	w, env := perform(t, r, http.MethodGet, "/forecast", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var forecast models.SpoilageForecast
	require.NoError(t, json.Unmarshal(env.Data, &forecast))
	assert.Equal(t, 2, forecast.Summary.TotalAtRiskBatches)

	w, _ = perform(t, r, http.MethodGet, "/history?limit=3", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 3, svc.limit)
}

func simulationRouter() *gin.Engine {
	h := NewSimulationHandler(risk.NewScorer(risk.DefaultParams()), allocation.NewAllocator(nil), nil, nil)
	r := gin.New()
	r.POST("/score", h.Score)
	r.POST("/simulate", h.Simulate)
	return r
}

func TestScoreEndpoint(t *testing.T) {
	w, env := perform(t, simulationRouter(), http.MethodPost, "/score", map[string]any{
		"temperature_actual": 14.0,
		"humidity_actual":    92.0,
		"days_remaining":     2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var assessment risk.Assessment
	require.NoError(t, json.Unmarshal(env.Data, &assessment))
	assert.InDelta(t, 0.8, assessment.RiskFactor, 1e-9)
	assert.Equal(t, models.RiskHigh, assessment.Risk)

	w, _ = perform(t, simulationRouter(), http.MethodPost, "/score", map[string]any{
		"temperature_requirement": "13to15",
		"temperature_actual":      14.0,
		"humidity_actual":         92.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulateEndpoint(t *testing.T) {
	w, env := perform(t, simulationRouter(), http.MethodPost, "/simulate", map[string]any{
		"batches": []map[string]any{
			{"id": 1, "quantity_kg": 1000, "spoilage_risk": "high", "days_remaining": 1},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Recommendations []models.AllocationRecommendation `json:"recommendations"`
		TotalRevenue    float64                           `json:"total_potential_revenue_php"`
		Summary         string                            `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Recommendations, 1)
	assert.InDelta(t, 52000, result.TotalRevenue, 1e-6)
	assert.Contains(t, result.Summary, "1000 kg")
}

func TestSimulateUnknownChannel(t *testing.T) {
	body := map[string]any{
		"batches": []map[string]any{
			{"id": 1, "quantity_kg": 100, "spoilage_risk": "high", "days_remaining": 1},
		},
	}

	posted := map[string]any{
		"batches":  body["batches"],
		"channels": []map[string]any{{"name": "local_markets", "demand_kg": 100, "price_per_kg": 50}},
	}
	w, _ := perform(t, simulationRouter(), http.MethodPost, "/simulate", posted)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h := NewSimulationHandler(risk.NewScorer(risk.DefaultParams()), allocation.NewAllocator(nil),
		models.DefaultChannelTable()[:1], nil)
	r := gin.New()
	r.POST("/simulate", h.Simulate)
	w, _ = perform(t, r, http.MethodPost, "/simulate", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type fakeSender struct{ err error }

func (f fakeSender) SendMessage(context.Context, models.OutboundMessageRequest) (string, error) {
	return "wamid.1", f.err
}

func TestAlertSendMessage(t *testing.T) {
	r := gin.New()
	r.POST("/send", NewAlertHandler(fakeSender{}, nil).SendMessage)
	w, env := perform(t, r, http.MethodPost, "/send", map[string]any{"message": "door open"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, string(env.Data), "wamid.1")

	r = gin.New()
	r.POST("/send", NewAlertHandler(fakeSender{err: alerts.ErrDisabled}, nil).SendMessage)
	w, _ = perform(t, r, http.MethodPost, "/send", map[string]any{"message": "door open"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = perform(t, r, http.MethodPost, "/send", map[string]any{"to": "6391"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
