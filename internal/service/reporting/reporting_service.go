// Package reporting builds the warehouse reports: spoilage forecast,
// distribution plans, storage advice and inventory/shipment analytics.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/allocation"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/domain/risk"
	"github.com/anilytics/agriwarehouse/internal/repository/mongodb"
	"github.com/anilytics/agriwarehouse/internal/repository/postgres"
	"github.com/anilytics/agriwarehouse/pkg/clients/advice"
)

// ErrArchiveDisabled is returned by history lookups when no archive is configured.
var ErrArchiveDisabled = errors.New("distribution archive is not configured")

const (
	forecastWindowDays    = 5
	trendWindowDays       = 30
	recentShipmentsLimit  = 10
	defaultAITimeout      = 10 * time.Second
	defaultPricePerKg     = 60
	defaultHistoryEntries = 10
)

// Store is the read side of the relational store used for reporting.
type Store interface {
	ListByStatus(ctx context.Context, statuses ...models.BatchStatus) ([]models.Batch, error)
	LocationConditions(ctx context.Context) ([]models.LocationConditions, error)
	DailyMovements(ctx context.Context, days int) ([]models.TrendPoint, error)
	ShipmentGroups(ctx context.Context, dim postgres.ShipmentDimension) ([]models.GroupTotal, error)
	RecentShipments(ctx context.Context, limit int) ([]models.RecentShipment, error)
}

// Advisor is an AI provider able to propose a distribution plan.
type Advisor interface {
	Name() string
	RecommendDistribution(ctx context.Context, req advice.Request) (advice.Result, error)
}

// Settings tunes the reports.
type Settings struct {
	Channels          models.ChannelTable
	AveragePricePerKg float64
	AITimeout         time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithAdvisor enables AI distribution plans.
func WithAdvisor(a Advisor) Option {
	return func(s *Service) { s.advisor = a }
}

// WithArchive stores every generated distribution plan.
func WithArchive(repo mongodb.Repository) Option {
	return func(s *Service) { s.archive = repo }
}

// Service produces the reports.
type Service struct {
	store     Store
	scorer    *risk.Scorer
	allocator *allocation.Allocator
	advisor   Advisor
	archive   mongodb.Repository
	settings  Settings
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a reporting service instance.
func NewService(store Store, scorer *risk.Scorer, allocator *allocation.Allocator, settings Settings, logger *zap.Logger, opts ...Option) *Service {
	if scorer == nil {
		scorer = risk.NewScorer(risk.DefaultParams())
	}
	if allocator == nil {
		allocator = allocation.NewAllocator(nil)
	}
	if len(settings.Channels) == 0 {
		settings.Channels = models.DefaultChannelTable()
	}
	if settings.AveragePricePerKg <= 0 {
		settings.AveragePricePerKg = defaultPricePerKg
	}
	if settings.AITimeout <= 0 {
		settings.AITimeout = defaultAITimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:     store,
		scorer:    scorer,
		allocator: allocator,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SpoilageForecast lists active batches that already carry a medium or high
// risk or expire within five days, rescored from their latest readings.
func (s *Service) SpoilageForecast(ctx context.Context) (models.SpoilageForecast, error) {
	active, err := s.store.ListByStatus(ctx, models.StatusInStorage, models.StatusPendingShipment)
	if err != nil {
		return models.SpoilageForecast{}, fmt.Errorf("load active batches: %w", err)
	}

	price := decimal.NewFromFloat(s.settings.AveragePricePerKg)
	totalKg, highKg := decimal.Zero, decimal.Zero
	totalDays := 0

	forecast := models.SpoilageForecast{AtRiskBatches: make([]models.ForecastBatch, 0)}
	for _, b := range active {
		if b.SpoilageRisk != models.RiskMedium && b.SpoilageRisk != models.RiskHigh && b.DaysRemaining > forecastWindowDays {
			continue
		}

		assessment := s.assess(b)
		qty := decimal.NewFromFloat(b.QuantityKg)
		if assessment.Risk == models.RiskHigh {
			highKg = highKg.Add(qty)
		}
		totalKg = totalKg.Add(qty)
		totalDays += b.DaysRemaining

		forecast.AtRiskBatches = append(forecast.AtRiskBatches, models.ForecastBatch{
			Batch:          b,
			AdjustedRisk:   assessment.Risk,
			RiskFactor:     assessment.RiskFactor,
			EstimatedValue: qty.Mul(price).Round(2).InexactFloat64(),
		})
	}

	n := len(forecast.AtRiskBatches)
	forecast.Summary = models.ForecastSummary{
		TotalAtRiskBatches:    n,
		TotalAtRiskQuantityKg: totalKg.InexactFloat64(),
		HighRiskQuantityKg:    highKg.InexactFloat64(),
		PotentialLossHighRisk: highKg.Mul(price).Round(2).InexactFloat64(),
		PotentialLossTotal:    totalKg.Mul(price).Round(2).InexactFloat64(),
		AverageDaysRemaining:  float64(totalDays) / math.Max(1, float64(n)),
	}
	return forecast, nil
}

// assess scores a batch, keeping the persisted category when the stored
// requirements cannot be scored.
func (s *Service) assess(b models.Batch) risk.Assessment {
	assessment, err := s.scorer.Score(b)
	if err != nil {
		s.logger.Warn("cannot score batch, keeping stored risk", zap.Int64("batch_id", b.ID), zap.Error(err))
		return risk.Assessment{Risk: b.SpoilageRisk}
	}
	return assessment
}

var cavendishOptimal = models.OptimalConditions{
	Temperature: models.OptimalBand{Min: 13, Max: 15, Ideal: 14, Unit: "°C"},
	Humidity:    models.OptimalBand{Min: 90, Max: 95, Ideal: 92, Unit: "%"},
}

// StorageRecommendations compares the averaged readings of every location with
// the optimal Cavendish band.
func (s *Service) StorageRecommendations(ctx context.Context) (models.StorageReport, error) {
	conditions, err := s.store.LocationConditions(ctx)
	if err != nil {
		return models.StorageReport{}, fmt.Errorf("load storage conditions: %w", err)
	}

	report := models.StorageReport{
		StorageRecommendations: make([]models.StorageRecommendation, 0, len(conditions)),
		OptimalConditions:      cavendishOptimal,
		Summary:                storageSummary(cavendishOptimal),
	}
	for _, c := range conditions {
		report.StorageRecommendations = append(report.StorageRecommendations, StorageAdvice(c, cavendishOptimal))
	}
	return report, nil
}

// StorageAdvice derives the advice for one location.
func StorageAdvice(c models.LocationConditions, optimal models.OptimalConditions) models.StorageRecommendation {
	tempDeviation := math.Abs(c.AvgTemperature - optimal.Temperature.Ideal)
	humidDeviation := math.Abs(c.AvgHumidity - optimal.Humidity.Ideal)

	level := models.RiskLow
	switch {
	case tempDeviation > 3 || humidDeviation > 10:
		level = models.RiskHigh
	case tempDeviation > 1 || humidDeviation > 5:
		level = models.RiskMedium
	}

	return models.StorageRecommendation{
		StorageLocation:   c.StorageLocation,
		CurrentConditions: models.ConditionPair{Temperature: c.AvgTemperature, Humidity: c.AvgHumidity},
		Deviations:        models.ConditionPair{Temperature: tempDeviation, Humidity: humidDeviation},
		Recommendations: models.AdvicePair{
			Temperature: adjustment("temperature", c.AvgTemperature, optimal.Temperature),
			Humidity:    adjustment("humidity", c.AvgHumidity, optimal.Humidity),
		},
		RiskLevel:           level,
		AffectedInventoryKg: c.TotalKg,
	}
}

func adjustment(name string, actual float64, band models.OptimalBand) string {
	ideal := decimal.NewFromFloat(band.Ideal)
	current := decimal.NewFromFloat(actual)

	switch {
	case actual < band.Min:
		return fmt.Sprintf("Increase %s by %s%s", name, ideal.Sub(current).StringFixed(1), band.Unit)
	case actual > band.Max:
		return fmt.Sprintf("Decrease %s by %s%s", name, current.Sub(ideal).StringFixed(1), band.Unit)
	default:
		return fmt.Sprintf("%s is within optimal range.", capitalize(name))
	}
}

func storageSummary(o models.OptimalConditions) string {
	t, h := o.Temperature, o.Humidity
	return fmt.Sprintf("Maintain temperature at %s%s (range: %s-%s%s) and humidity at %s%s (range: %s-%s%s) for optimal Cavendish banana storage.",
		number(t.Ideal), t.Unit, number(t.Min), number(t.Max), t.Unit,
		number(h.Ideal), h.Unit, number(h.Min), number(h.Max), h.Unit)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
