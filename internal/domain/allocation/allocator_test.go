package allocation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		c      Candidate
		want   Tier
		wantOK bool
	}{
		{"high risk long shelf life", Candidate{Risk: models.RiskHigh, DaysRemaining: 12}, TierHigh, true},
		{"low risk two days", Candidate{Risk: models.RiskLow, DaysRemaining: 2}, TierHigh, true},
		{"expired", Candidate{Risk: models.RiskLow, DaysRemaining: -1}, TierHigh, true},
		{"medium risk two days", Candidate{Risk: models.RiskMedium, DaysRemaining: 2}, TierHigh, true},
		{"medium risk", Candidate{Risk: models.RiskMedium, DaysRemaining: 10}, TierMedium, true},
		{"low risk three days", Candidate{Risk: models.RiskLow, DaysRemaining: 3}, TierMedium, true},
		{"low risk five days", Candidate{Risk: models.RiskLow, DaysRemaining: 5}, TierMedium, true},
		{"low risk six days", Candidate{Risk: models.RiskLow, DaysRemaining: 6}, TierLow, true},
		{"unknown risk", Candidate{Risk: "", DaysRemaining: 9}, "", false},
		{"unknown risk urgent", Candidate{Risk: "spoiled", DaysRemaining: 1}, TierHigh, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.c)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAllocateWaterfall(t *testing.T) {
	a := NewAllocator(nil)
	candidates := []Candidate{
		{ID: 1, QuantityKg: 600, Risk: models.RiskHigh, DaysRemaining: 8},
		{ID: 2, QuantityKg: 400, Risk: models.RiskLow, DaysRemaining: 1},
		{ID: 3, QuantityKg: 800, Risk: models.RiskMedium, DaysRemaining: 9},
	}

	res, err := a.Allocate(candidates, models.DefaultChannelTable())
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 2)

	high := res.Recommendations[0]
	assert.Equal(t, "URGENT - Same Day Distribution", high.Priority)
	assert.Equal(t, "Distribute 1000 kg of high-risk bananas immediately", high.Description)
	assert.Equal(t, []int64{1, 2}, high.Batches)
	assert.InDelta(t, 700, high.Allocation[models.ChannelLocalMarkets], 1e-9)
	assert.InDelta(t, 300, high.Allocation[models.ChannelProcessors], 1e-9)

	medium := res.Recommendations[1]
	assert.Equal(t, "HIGH - Next Day Distribution", medium.Priority)
	assert.Equal(t, []int64{3}, medium.Batches)
	assert.InDelta(t, 320, medium.Allocation[models.ChannelLocalMarkets], 1e-9)
	assert.InDelta(t, 480, medium.Allocation[models.ChannelSupermarkets], 1e-9)

	assert.InDelta(t, 5000-700-320, res.Remaining[models.ChannelLocalMarkets], 1e-9)
	assert.InDelta(t, 3000-480, res.Remaining[models.ChannelSupermarkets], 1e-9)
}

func TestAllocateRevenue(t *testing.T) {
	a := NewAllocator(nil)

	res, err := a.Allocate([]Candidate{{ID: 7, QuantityKg: 1000, Risk: models.RiskHigh, DaysRemaining: 1}}, models.DefaultChannelTable())
	require.NoError(t, err)

	assert.InDelta(t, 700*55+300*45, res.TotalRevenue, 1e-6)
	assert.InDelta(t, 52000, res.TotalRevenue, 1e-6)
}

func TestAllocateEmptyTierEmitsNothing(t *testing.T) {
	a := NewAllocator(nil)

	res, err := a.Allocate([]Candidate{
		{ID: 1, QuantityKg: 1000, Risk: models.RiskHigh, DaysRemaining: 1},
		{ID: 2, QuantityKg: 800, Risk: models.RiskMedium, DaysRemaining: 4},
	}, models.DefaultChannelTable())
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 2)
	for _, rec := range res.Recommendations {
		assert.NotEqual(t, "NORMAL - Strategic Distribution", rec.Priority)
	}
	assert.Equal(t, 0.0, res.TierTotals[TierLow])
	// 700*55 + 300*45 + 480*65 + 320*55
	assert.InDelta(t, 38500+13500+31200+17600, res.TotalRevenue, 1e-6)
}

func TestAllocateNoCandidates(t *testing.T) {
	res, err := NewAllocator(nil).Allocate(nil, models.DefaultChannelTable())
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, 0.0, res.TotalRevenue)
}

func TestAllocateLaterTiersSeeResidualDemand(t *testing.T) {
	a := NewAllocator(nil)
	candidates := []Candidate{
		{ID: 1, QuantityKg: 10000, Risk: models.RiskHigh, DaysRemaining: 1},
		{ID: 2, QuantityKg: 4000, Risk: models.RiskMedium, DaysRemaining: 10},
		{ID: 3, QuantityKg: 5000, Risk: models.RiskLow, DaysRemaining: 12},
	}

	res, err := a.Allocate(candidates, models.DefaultChannelTable())
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 3)

	high, medium, low := res.Recommendations[0], res.Recommendations[1], res.Recommendations[2]

	// local markets saturate on the high tier
	assert.InDelta(t, 5000, high.Allocation[models.ChannelLocalMarkets], 1e-9)
	assert.InDelta(t, 2000, high.Allocation[models.ChannelProcessors], 1e-9)
	assert.InDelta(t, 0, medium.Allocation[models.ChannelLocalMarkets], 1e-9)
	assert.InDelta(t, 2400, medium.Allocation[models.ChannelSupermarkets], 1e-9)

	// low tier only gets what the medium tier left of supermarket demand
	assert.InDelta(t, 4000, low.Allocation[models.ChannelExporters], 1e-9)
	assert.InDelta(t, 600, low.Allocation[models.ChannelSupermarkets], 1e-9)
	assert.Equal(t, "NORMAL - Strategic Distribution", low.Priority)

	for name, left := range res.Remaining {
		assert.GreaterOrEqual(t, left, 0.0, name)
	}
}

func TestAllocateIgnoresNonPositiveQuantities(t *testing.T) {
	a := NewAllocator(nil)

	res, err := a.Allocate([]Candidate{
		{ID: 1, QuantityKg: 0, Risk: models.RiskHigh, DaysRemaining: 1},
		{ID: 2, QuantityKg: -50, Risk: models.RiskHigh, DaysRemaining: 1},
		{ID: 3, QuantityKg: 100, Risk: models.RiskLow, DaysRemaining: 10},
	}, models.DefaultChannelTable())
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, []int64{3}, res.Recommendations[0].Batches)
	assert.Equal(t, 0.0, res.TierTotals[TierHigh])
}

func TestAllocateDropsUnclassifiedBatches(t *testing.T) {
	a := NewAllocator(nil)

	res, err := a.Allocate([]Candidate{
		{ID: 11, QuantityKg: 100, Risk: "", DaysRemaining: 10},
		{ID: 12, QuantityKg: 100, Risk: models.RiskLow, DaysRemaining: 10},
	}, models.DefaultChannelTable())
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, res.Dropped)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, []int64{12}, res.Recommendations[0].Batches)
}

func TestAllocateUnknownChannel(t *testing.T) {
	table := models.ChannelTable{
		{Name: models.ChannelLocalMarkets, DemandKg: 100, PricePerKg: 50},
	}

	_, err := NewAllocator(nil).Allocate(nil, table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChannel))
}

func TestPolicyCheckChannels(t *testing.T) {
	assert.NoError(t, DefaultPolicy().CheckChannels(models.DefaultChannelTable()))

	table := models.DefaultChannelTable()[:3]
	err := DefaultPolicy().CheckChannels(table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChannel))
	assert.Contains(t, err.Error(), models.ChannelExporters)
}

func TestAllocateRejectsInvalidTable(t *testing.T) {
	table := models.DefaultChannelTable()
	table[0].DemandKg = -1

	_, err := NewAllocator(nil).Allocate(nil, table)
	var vErr *models.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestAllocateDoesNotMutateChannelTable(t *testing.T) {
	table := models.DefaultChannelTable()
	before := table.Clone()

	_, err := NewAllocator(nil).Allocate([]Candidate{
		{ID: 1, QuantityKg: 9000, Risk: models.RiskHigh, DaysRemaining: 1},
	}, table)
	require.NoError(t, err)

	assert.Equal(t, before, table)
}

func TestAllocateConcurrentCallsAreIndependent(t *testing.T) {
	a := NewAllocator(nil)
	table := models.DefaultChannelTable()
	candidates := []Candidate{
		{ID: 1, QuantityKg: 1000, Risk: models.RiskHigh, DaysRemaining: 1},
		{ID: 2, QuantityKg: 800, Risk: models.RiskMedium, DaysRemaining: 4},
		{ID: 3, QuantityKg: 2000, Risk: models.RiskLow, DaysRemaining: 10},
	}

	want, err := a.Allocate(candidates, table)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Allocate(candidates, table)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.Recommendations, got.Recommendations)
		assert.InDelta(t, want.TotalRevenue, got.TotalRevenue, 1e-9)
	}
}

func TestCustomPolicy(t *testing.T) {
	policy := Policy{{
		Tier:        TierHigh,
		Priority:    "DUMP",
		Description: "Sell %s kg to processors",
		Reason:      "custom",
		Splits:      []Split{{Channel: models.ChannelProcessors, Ratio: 1}},
	}}

	res, err := NewAllocator(policy).Allocate([]Candidate{
		{ID: 1, QuantityKg: 500, Risk: models.RiskHigh, DaysRemaining: 1},
		{ID: 2, QuantityKg: 500, Risk: models.RiskLow, DaysRemaining: 10},
	}, models.DefaultChannelTable())
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "Sell 500 kg to processors", res.Recommendations[0].Description)
	assert.InDelta(t, 500*45, res.TotalRevenue, 1e-9)
}

func TestResultPlanAndSummary(t *testing.T) {
	res, err := NewAllocator(nil).Allocate([]Candidate{
		{ID: 1, QuantityKg: 1000, Risk: models.RiskHigh, DaysRemaining: 1},
	}, models.DefaultChannelTable())
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	plan := res.Plan(now)

	assert.Equal(t, models.PlanSourceRules, plan.Source)
	assert.Equal(t, now, plan.GeneratedAt)
	assert.Contains(t, plan.Summary, "high-risk batches (1000 kg)")
	assert.Contains(t, plan.Summary, "low-risk batches (0 kg)")
}
