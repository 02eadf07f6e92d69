package reporting

import (
	"context"
	"fmt"
	"sort"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/repository/postgres"
)

var shelfLifeBuckets = []struct {
	label   string
	maxDays int
}{
	{"0-2 days", 2},
	{"3-5 days", 5},
	{"6-8 days", 8},
}

const openShelfLifeBucket = "9+ days"

// InventoryAnalytics reports the 30-day movement trend and the current stock
// grouped by grade, risk and remaining shelf life.
func (s *Service) InventoryAnalytics(ctx context.Context) (models.InventoryAnalytics, error) {
	trend, err := s.store.DailyMovements(ctx, trendWindowDays)
	if err != nil {
		return models.InventoryAnalytics{}, fmt.Errorf("load inventory trend: %w", err)
	}
	active, err := s.store.ListByStatus(ctx, models.StatusInStorage, models.StatusPendingShipment)
	if err != nil {
		return models.InventoryAnalytics{}, fmt.Errorf("load active batches: %w", err)
	}

	return models.InventoryAnalytics{
		InventoryTrends:       RunningBalance(trend),
		InventoryByGrade:      groupByGrade(active),
		SpoilageDistribution:  groupByRisk(active),
		ShelfLifeDistribution: groupByShelfLife(active),
	}, nil
}

// RunningBalance fills Balance with the cumulative net movement, starting at zero.
func RunningBalance(points []models.TrendPoint) []models.TrendPoint {
	out := make([]models.TrendPoint, len(points))
	var balance float64
	for i, p := range points {
		balance += p.Additions - p.Removals
		p.Balance = balance
		out[i] = p
	}
	return out
}

type grouper struct {
	order  []string
	totals map[string]*models.GroupTotal
}

func newGrouper() *grouper {
	return &grouper{totals: make(map[string]*models.GroupTotal)}
}

func (g *grouper) add(key string, kg float64) {
	t, ok := g.totals[key]
	if !ok {
		t = &models.GroupTotal{Key: key}
		g.totals[key] = t
		g.order = append(g.order, key)
	}
	t.BatchCount++
	t.TotalKg += kg
}

func (g *grouper) collect(keys []string) []models.GroupTotal {
	out := make([]models.GroupTotal, 0, len(g.totals))
	for _, k := range keys {
		if t, ok := g.totals[k]; ok {
			out = append(out, *t)
		}
	}
	return out
}

func groupByGrade(batches []models.Batch) []models.GroupTotal {
	g := newGrouper()
	for _, b := range batches {
		g.add(b.QualityGrade, b.QuantityKg)
	}
	keys := append([]string(nil), g.order...)
	sort.Strings(keys)
	return g.collect(keys)
}

func groupByRisk(batches []models.Batch) []models.GroupTotal {
	g := newGrouper()
	for _, b := range batches {
		g.add(string(b.SpoilageRisk), b.QuantityKg)
	}
	return g.collect([]string{string(models.RiskHigh), string(models.RiskMedium), string(models.RiskLow)})
}

func groupByShelfLife(batches []models.Batch) []models.GroupTotal {
	g := newGrouper()
	for _, b := range batches {
		g.add(shelfLifeBucket(b.DaysRemaining), b.QuantityKg)
	}

	keys := make([]string, 0, len(shelfLifeBuckets)+1)
	for _, bucket := range shelfLifeBuckets {
		keys = append(keys, bucket.label)
	}
	return g.collect(append(keys, openShelfLifeBucket))
}

func shelfLifeBucket(days int) string {
	for _, bucket := range shelfLifeBuckets {
		if days <= bucket.maxDays {
			return bucket.label
		}
	}
	return openShelfLifeBucket
}

// ShipmentAnalytics summarises shipments by status, destination and transport.
func (s *Service) ShipmentAnalytics(ctx context.Context) (models.ShipmentAnalytics, error) {
	byStatus, err := s.store.ShipmentGroups(ctx, postgres.ShipmentByStatus)
	if err != nil {
		return models.ShipmentAnalytics{}, err
	}
	byDestination, err := s.store.ShipmentGroups(ctx, postgres.ShipmentByDestination)
	if err != nil {
		return models.ShipmentAnalytics{}, err
	}
	byTransport, err := s.store.ShipmentGroups(ctx, postgres.ShipmentByTransport)
	if err != nil {
		return models.ShipmentAnalytics{}, err
	}
	recent, err := s.store.RecentShipments(ctx, recentShipmentsLimit)
	if err != nil {
		return models.ShipmentAnalytics{}, err
	}

	return models.ShipmentAnalytics{
		ShipmentSummary:         byStatus,
		DestinationDistribution: byDestination,
		RecentShipments:         recent,
		TransportationTypes:     byTransport,
	}, nil
}
