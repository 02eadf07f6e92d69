package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/repository/postgres"
	"github.com/anilytics/agriwarehouse/pkg/clients/advice"
)

type fakeStore struct {
	batches    []models.Batch
	conditions []models.LocationConditions
	trend      []models.TrendPoint
	groups     map[postgres.ShipmentDimension][]models.GroupTotal
	recentN    int
}

func (f *fakeStore) ListByStatus(_ context.Context, statuses ...models.BatchStatus) ([]models.Batch, error) {
	out := make([]models.Batch, 0)
	for _, b := range f.batches {
		for _, st := range statuses {
			if b.Status == st {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) LocationConditions(context.Context) ([]models.LocationConditions, error) {
	return f.conditions, nil
}

func (f *fakeStore) DailyMovements(context.Context, int) ([]models.TrendPoint, error) {
	return f.trend, nil
}

func (f *fakeStore) ShipmentGroups(_ context.Context, dim postgres.ShipmentDimension) ([]models.GroupTotal, error) {
	return f.groups[dim], nil
}

func (f *fakeStore) RecentShipments(_ context.Context, limit int) ([]models.RecentShipment, error) {
	f.recentN = limit
	return []models.RecentShipment{}, nil
}

type fakeAdvisor struct {
	result advice.Result
	err    error
	block  bool
	panics bool
	calls  int
}

func (f *fakeAdvisor) Name() string { return "fake" }

func (f *fakeAdvisor) RecommendDistribution(ctx context.Context, _ advice.Request) (advice.Result, error) {
	f.calls++
	if f.panics {
		var res *advice.Result
		return *res, nil
	}
	if f.block {
		<-ctx.Done()
		return advice.Result{}, ctx.Err()
	}
	return f.result, f.err
}

type fakeArchive struct {
	mu      sync.Mutex
	reports []models.DistributionReport
	limit   int
}

func (f *fakeArchive) SaveDistributionReport(_ context.Context, r models.DistributionReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeArchive) ListDistributionReports(_ context.Context, limit int) ([]models.DistributionReport, error) {
	f.limit = limit
	return f.reports, nil
}

func (f *fakeArchive) GetDistributionReport(_ context.Context, id string) (models.DistributionReport, error) {
	for _, r := range f.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return models.DistributionReport{}, errors.New("not found")
}

func ptr[T any](v T) *T { return &v }

func stockBatch(id int64, kg float64, days int, level models.RiskLevel) models.Batch {
	return models.Batch{
		ID:                     id,
		Variety:                "Cavendish",
		QuantityKg:             kg,
		DaysRemaining:          days,
		SpoilageRisk:           level,
		Status:                 models.StatusInStorage,
		QualityGrade:           "A",
		TemperatureRequirement: models.Range{Min: 13, Max: 15},
		HumidityRequirement:    models.Range{Min: 90, Max: 95},
	}
}

func newTestService(store Store, opts ...Option) *Service {
	svc := NewService(store, nil, nil, Settings{AITimeout: 50 * time.Millisecond}, nil, opts...)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC) }
	return svc
}

func TestDistributionRecommendationsRulesOnly(t *testing.T) {
	store := &fakeStore{batches: []models.Batch{
		stockBatch(1, 1000, 1, models.RiskHigh),
		stockBatch(2, 800, 4, models.RiskMedium),
	}}

	resp, err := newTestService(store).DistributionRecommendations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.PlanSourceRules, resp.Plan.Source)
	require.Len(t, resp.Plan.Recommendations, 2)
	urgent := resp.Plan.Recommendations[0]
	assert.Equal(t, "URGENT - Same Day Distribution", urgent.Priority)
	assert.InDelta(t, 700, urgent.Allocation[models.ChannelLocalMarkets], 1e-9)
	assert.InDelta(t, 300, urgent.Allocation[models.ChannelProcessors], 1e-9)
	assert.InDelta(t, 100800, resp.Plan.TotalRevenue, 1e-6)
	assert.NotEmpty(t, resp.ReportID)
	assert.Equal(t, models.DefaultChannelTable(), resp.DemandData)
}

func TestDistributionRecommendationsAISupersedesWhenValid(t *testing.T) {
	store := &fakeStore{batches: []models.Batch{stockBatch(1, 1000, 1, models.RiskHigh)}}
	advisor := &fakeAdvisor{result: advice.Result{
		Recommendations: []models.AllocationRecommendation{{Priority: "URGENT", Batches: []int64{1}}},
		TotalRevenue:    55000,
		Summary:         "all to local markets",
	}}
	archive := &fakeArchive{}

	resp, err := newTestService(store, WithAdvisor(advisor), WithArchive(archive)).DistributionRecommendations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ai:fake", resp.Plan.Source)
	assert.Equal(t, "all to local markets", resp.Plan.Summary)

	require.Len(t, archive.reports, 1)
	saved := archive.reports[0]
	assert.Equal(t, resp.ReportID, saved.ID)
	assert.Equal(t, 1, saved.BatchCount)
	assert.Equal(t, 1000.0, saved.TotalKg)
	require.NotNil(t, saved.RulesPlan)
	assert.Equal(t, models.PlanSourceRules, saved.RulesPlan.Source)
}

func TestDistributionRecommendationsFallsBackToRules(t *testing.T) {
	cases := map[string]*fakeAdvisor{
		"advisor error":           {err: errors.New("upstream unavailable")},
		"missing recommendations": {result: advice.Result{Summary: "no plan"}},
		"advisor timeout":         {block: true},
		"advisor panic":           {panics: true},
	}

	for name, advisor := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{batches: []models.Batch{stockBatch(1, 1000, 1, models.RiskHigh)}}
			archive := &fakeArchive{}

			resp, err := newTestService(store, WithAdvisor(advisor), WithArchive(archive)).DistributionRecommendations(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 1, advisor.calls)
			assert.Equal(t, models.PlanSourceRules, resp.Plan.Source)
			require.Len(t, resp.Plan.Recommendations, 1)
			require.Len(t, archive.reports, 1)
			assert.Nil(t, archive.reports[0].RulesPlan)
		})
	}
}

func TestDistributionRecommendationsSkipsAdvisorWithoutStock(t *testing.T) {
	advisor := &fakeAdvisor{}
	resp, err := newTestService(&fakeStore{}, WithAdvisor(advisor)).DistributionRecommendations(context.Background())
	require.NoError(t, err)

	assert.Zero(t, advisor.calls)
	assert.Empty(t, resp.Plan.Recommendations)
}

func TestDistributionRecommendationsUsesRefinedRisk(t *testing.T) {
	b := stockBatch(1, 500, 10, models.RiskLow)
	b.TemperatureActual = ptr(25.0)
	b.HumidityActual = ptr(70.0)

	resp, err := newTestService(&fakeStore{batches: []models.Batch{b}}).DistributionRecommendations(context.Background())
	require.NoError(t, err)

	require.Len(t, resp.Plan.Recommendations, 1)
	assert.Equal(t, "URGENT - Same Day Distribution", resp.Plan.Recommendations[0].Priority)
	assert.Equal(t, models.RiskHigh, resp.Batches[0].SpoilageRisk)
}

func TestSpoilageForecast(t *testing.T) {
	fresh := stockBatch(1, 400, 10, models.RiskLow)
	watched := stockBatch(2, 200, 10, models.RiskMedium)
	watched.Status = models.StatusPendingShipment
	expiring := stockBatch(3, 100, 1, models.RiskLow)
	expiring.TemperatureActual = ptr(14.0)
	expiring.HumidityActual = ptr(92.0)
	shipped := stockBatch(4, 900, 0, models.RiskHigh)
	shipped.Status = models.StatusShipped

	forecast, err := newTestService(&fakeStore{batches: []models.Batch{fresh, watched, expiring, shipped}}).SpoilageForecast(context.Background())
	require.NoError(t, err)

	require.Len(t, forecast.AtRiskBatches, 2)
	assert.Equal(t, int64(2), forecast.AtRiskBatches[0].ID)
	assert.Equal(t, models.RiskMedium, forecast.AtRiskBatches[0].AdjustedRisk)
	assert.Zero(t, forecast.AtRiskBatches[0].RiskFactor)
	assert.Equal(t, 12000.0, forecast.AtRiskBatches[0].EstimatedValue)

	assert.Equal(t, models.RiskHigh, forecast.AtRiskBatches[1].AdjustedRisk)
	assert.InDelta(t, 0.8, forecast.AtRiskBatches[1].RiskFactor, 1e-9)

	s := forecast.Summary
	assert.Equal(t, 2, s.TotalAtRiskBatches)
	assert.Equal(t, 300.0, s.TotalAtRiskQuantityKg)
	assert.Equal(t, 100.0, s.HighRiskQuantityKg)
	assert.Equal(t, 6000.0, s.PotentialLossHighRisk)
	assert.Equal(t, 18000.0, s.PotentialLossTotal)
	assert.Equal(t, 5.5, s.AverageDaysRemaining)
}

func TestSpoilageForecastEmpty(t *testing.T) {
	forecast, err := newTestService(&fakeStore{}).SpoilageForecast(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, forecast.AtRiskBatches)
	assert.Zero(t, forecast.Summary.AverageDaysRemaining)
}

func TestStorageAdvice(t *testing.T) {
	cold := StorageAdvice(models.LocationConditions{StorageLocation: "Zone A", AvgTemperature: 10, AvgHumidity: 92, TotalKg: 800}, cavendishOptimal)
	assert.Equal(t, "Increase temperature by 4.0°C", cold.Recommendations.Temperature)
	assert.Equal(t, "Humidity is within optimal range.", cold.Recommendations.Humidity)
	assert.Equal(t, models.RiskHigh, cold.RiskLevel)
	assert.Equal(t, 800.0, cold.AffectedInventoryKg)

	warm := StorageAdvice(models.LocationConditions{StorageLocation: "Zone B", AvgTemperature: 16.5, AvgHumidity: 97}, cavendishOptimal)
	assert.Equal(t, "Decrease temperature by 2.5°C", warm.Recommendations.Temperature)
	assert.Equal(t, "Decrease humidity by 5.0%", warm.Recommendations.Humidity)
	assert.Equal(t, models.RiskMedium, warm.RiskLevel)

	ideal := StorageAdvice(models.LocationConditions{AvgTemperature: 14, AvgHumidity: 92}, cavendishOptimal)
	assert.Equal(t, models.RiskLow, ideal.RiskLevel)
	assert.Equal(t, "Temperature is within optimal range.", ideal.Recommendations.Temperature)
}

func TestStorageRecommendationsSummary(t *testing.T) {
	store := &fakeStore{conditions: []models.LocationConditions{{StorageLocation: "Zone A", AvgTemperature: 14, AvgHumidity: 92}}}
	report, err := newTestService(store).StorageRecommendations(context.Background())
	require.NoError(t, err)

	require.Len(t, report.StorageRecommendations, 1)
	assert.Equal(t, "Maintain temperature at 14°C (range: 13-15°C) and humidity at 92% (range: 90-95%) for optimal Cavendish banana storage.", report.Summary)
}

func TestRunningBalance(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	points := RunningBalance([]models.TrendPoint{
		{Date: day, Additions: 500},
		{Date: day.AddDate(0, 0, 1), Removals: 200},
		{Date: day.AddDate(0, 0, 2), Additions: 50, Removals: 50},
	})

	require.Len(t, points, 3)
	assert.Equal(t, 500.0, points[0].Balance)
	assert.Equal(t, 300.0, points[1].Balance)
	assert.Equal(t, 300.0, points[2].Balance)
}

func TestInventoryAnalyticsGroups(t *testing.T) {
	gradeB := stockBatch(3, 300, 7, models.RiskMedium)
	gradeB.QualityGrade = "B"
	store := &fakeStore{batches: []models.Batch{
		stockBatch(1, 100, -1, models.RiskHigh),
		stockBatch(2, 200, 12, models.RiskLow),
		gradeB,
		stockBatch(4, 50, 3, models.RiskHigh),
	}}

	analytics, err := newTestService(store).InventoryAnalytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.GroupTotal{
		{Key: "A", BatchCount: 3, TotalKg: 350},
		{Key: "B", BatchCount: 1, TotalKg: 300},
	}, analytics.InventoryByGrade)

	assert.Equal(t, []models.GroupTotal{
		{Key: "high", BatchCount: 2, TotalKg: 150},
		{Key: "medium", BatchCount: 1, TotalKg: 300},
		{Key: "low", BatchCount: 1, TotalKg: 200},
	}, analytics.SpoilageDistribution)

	assert.Equal(t, []models.GroupTotal{
		{Key: "0-2 days", BatchCount: 1, TotalKg: 100},
		{Key: "3-5 days", BatchCount: 1, TotalKg: 50},
		{Key: "6-8 days", BatchCount: 1, TotalKg: 300},
		{Key: "9+ days", BatchCount: 1, TotalKg: 200},
	}, analytics.ShelfLifeDistribution)
}

func TestShipmentAnalytics(t *testing.T) {
	store := &fakeStore{groups: map[postgres.ShipmentDimension][]models.GroupTotal{
		postgres.ShipmentByStatus:      {{Key: "scheduled", BatchCount: 2, TotalKg: 900}},
		postgres.ShipmentByDestination: {{Key: "Davao", BatchCount: 2, TotalKg: 900}},
		postgres.ShipmentByTransport:   {{Key: "truck", BatchCount: 2, TotalKg: 900}},
	}}

	analytics, err := newTestService(store).ShipmentAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "scheduled", analytics.ShipmentSummary[0].Key)
	assert.Equal(t, "Davao", analytics.DestinationDistribution[0].Key)
	assert.Equal(t, "truck", analytics.TransportationTypes[0].Key)
	assert.Equal(t, recentShipmentsLimit, store.recentN)
}

func TestDistributionHistory(t *testing.T) {
	_, err := newTestService(&fakeStore{}).DistributionHistory(context.Background(), 5)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	archive := &fakeArchive{reports: []models.DistributionReport{{ID: "r-1"}}}
	svc := newTestService(&fakeStore{}, WithArchive(archive))

	reports, err := svc.DistributionHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, defaultHistoryEntries, archive.limit)

	report, err := svc.DistributionReport(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", report.ID)
}
