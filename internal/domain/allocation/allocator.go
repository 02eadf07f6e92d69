// Package allocation distributes at-risk produce across demand channels with a
// single-pass greedy waterfall over risk tiers.
package allocation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// ErrUnknownChannel indicates the policy names a channel missing from the table.
var ErrUnknownChannel = errors.New("allocation policy references unknown channel")

// Candidate is the slice of a batch the allocator needs.
type Candidate struct {
	ID            int64            `json:"id"`
	QuantityKg    float64          `json:"quantity_kg"`
	Risk          models.RiskLevel `json:"spoilage_risk"`
	DaysRemaining int              `json:"days_remaining"`
}

// FromBatch builds a candidate, letting a refined risk replace the persisted one.
func FromBatch(b models.Batch, risk models.RiskLevel) Candidate {
	if risk == "" {
		risk = b.SpoilageRisk
	}
	return Candidate{
		ID:            b.ID,
		QuantityKg:    b.QuantityKg,
		Risk:          risk,
		DaysRemaining: b.DaysRemaining,
	}
}

// Result is the outcome of one allocation run.
type Result struct {
	Recommendations []models.AllocationRecommendation `json:"recommendations"`
	TotalRevenue    float64                           `json:"total_potential_revenue_php"`
	TierTotals      map[Tier]float64                  `json:"tier_totals"`
	Remaining       map[string]float64                `json:"remaining_demand"`
	Dropped         []int64                           `json:"dropped,omitempty"`
}

// Allocator applies a Policy. It keeps no state between calls.
type Allocator struct {
	policy Policy
}

// NewAllocator builds an allocator; a nil policy means DefaultPolicy.
func NewAllocator(policy Policy) *Allocator {
	if len(policy) == 0 {
		policy = DefaultPolicy()
	}
	return &Allocator{policy: policy}
}

type bucket struct {
	totalKg float64
	ids     []int64
}

// Allocate partitions candidate quantity across channels. Demand is tracked in a
// map owned by this call, so channels is never modified.
func (a *Allocator) Allocate(candidates []Candidate, channels models.ChannelTable) (Result, error) {
	if err := channels.Validate(); err != nil {
		return Result{}, err
	}

	remaining := make(map[string]float64, len(channels))
	prices := make(map[string]float64, len(channels))
	for _, ch := range channels {
		remaining[ch.Name] = ch.DemandKg
		prices[ch.Name] = ch.PricePerKg
	}
	if err := a.policy.CheckChannels(channels); err != nil {
		return Result{}, err
	}

	buckets, dropped := bucketize(candidates)

	result := Result{
		Recommendations: make([]models.AllocationRecommendation, 0, len(a.policy)),
		TierTotals:      make(map[Tier]float64, len(a.policy)),
		Dropped:         dropped,
	}

	for _, tp := range a.policy {
		b, ok := buckets[tp.Tier]
		if !ok {
			continue
		}
		result.TierTotals[tp.Tier] = b.totalKg
		if b.totalKg <= 0 {
			continue
		}

		allocation := make(map[string]float64, len(tp.Splits))
		for _, split := range tp.Splits {
			qty := math.Min(b.totalKg*split.Ratio, remaining[split.Channel])
			remaining[split.Channel] -= qty
			allocation[split.Channel] += qty
			result.TotalRevenue += qty * prices[split.Channel]
		}

		result.Recommendations = append(result.Recommendations, models.AllocationRecommendation{
			Priority:    tp.Priority,
			Description: fmt.Sprintf(tp.Description, formatKg(b.totalKg)),
			Allocation:  allocation,
			Batches:     b.ids,
			Reason:      tp.Reason,
		})
	}

	result.Remaining = remaining
	return result, nil
}

// Summary renders the tier totals as a short dispatch instruction.
func (r Result) Summary() string {
	return fmt.Sprintf("Distribute high-risk batches (%s kg) immediately to local markets and processors. "+
		"Send medium-risk batches (%s kg) to supermarkets within 1-2 days. "+
		"Reserve low-risk batches (%s kg) for export and remaining supermarket demand.",
		formatKg(r.TierTotals[TierHigh]), formatKg(r.TierTotals[TierMedium]), formatKg(r.TierTotals[TierLow]))
}

// Plan converts the result into a rule-based distribution plan.
func (r Result) Plan(generatedAt time.Time) models.DistributionPlan {
	return models.DistributionPlan{
		Source:          models.PlanSourceRules,
		Recommendations: r.Recommendations,
		TotalRevenue:    r.TotalRevenue,
		Summary:         r.Summary(),
		GeneratedAt:     generatedAt,
	}
}

func bucketize(candidates []Candidate) (map[Tier]*bucket, []int64) {
	buckets := map[Tier]*bucket{
		TierHigh:   {},
		TierMedium: {},
		TierLow:    {},
	}
	var dropped []int64

	for _, c := range candidates {
		tier, ok := Classify(c)
		if !ok {
			dropped = append(dropped, c.ID)
			continue
		}
		// Non-positive (or NaN) quantities contribute nothing.
		if !(c.QuantityKg > 0) {
			continue
		}
		b := buckets[tier]
		b.totalKg += c.QuantityKg
		b.ids = append(b.ids, c.ID)
	}

	return buckets, dropped
}

func formatKg(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
