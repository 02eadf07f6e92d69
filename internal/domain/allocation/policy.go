package allocation

import (
	"fmt"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// Tier is a risk grouping used to drive allocation.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Shelf-life cut-offs used when bucketing batches into tiers.
const (
	urgentDays = 2
	watchDays  = 5
)

// Split sends a fixed share of a tier's quantity to one channel.
type Split struct {
	Channel string  `json:"channel"`
	Ratio   float64 `json:"ratio"`
}

// TierPolicy describes how a tier is labelled and distributed. Description is a
// format string receiving the tier total in kg.
type TierPolicy struct {
	Tier        Tier    `json:"tier"`
	Priority    string  `json:"priority"`
	Description string  `json:"description"`
	Reason      string  `json:"reason"`
	Splits      []Split `json:"splits"`
}

// Policy lists tier policies in waterfall order: earlier tiers draw demand first.
type Policy []TierPolicy

// DefaultPolicy returns the high → medium → low waterfall.
func DefaultPolicy() Policy {
	return Policy{
		{
			Tier:        TierHigh,
			Priority:    "URGENT - Same Day Distribution",
			Description: "Distribute %s kg of high-risk bananas immediately",
			Reason:      "These batches have high spoilage risk or very short remaining shelf life",
			Splits: []Split{
				{Channel: models.ChannelLocalMarkets, Ratio: 0.7},
				{Channel: models.ChannelProcessors, Ratio: 0.3},
			},
		},
		{
			Tier:        TierMedium,
			Priority:    "HIGH - Next Day Distribution",
			Description: "Distribute %s kg of medium-risk bananas within 1-2 days",
			Reason:      "These batches have medium spoilage risk or moderate remaining shelf life",
			Splits: []Split{
				{Channel: models.ChannelSupermarkets, Ratio: 0.6},
				{Channel: models.ChannelLocalMarkets, Ratio: 0.4},
			},
		},
		{
			Tier:        TierLow,
			Priority:    "NORMAL - Strategic Distribution",
			Description: "Distribute %s kg of low-risk bananas within 3-4 days",
			Reason:      "These batches have low spoilage risk and longer remaining shelf life",
			Splits: []Split{
				{Channel: models.ChannelExporters, Ratio: 0.8},
				{Channel: models.ChannelSupermarkets, Ratio: 0.2},
			},
		},
	}
}

// CheckChannels fails with ErrUnknownChannel when a split names a channel
// missing from table.
func (p Policy) CheckChannels(table models.ChannelTable) error {
	for _, tier := range p {
		for _, split := range tier.Splits {
			if _, ok := table.Lookup(split.Channel); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownChannel, split.Channel)
			}
		}
	}
	return nil
}

// Classify assigns a candidate to its tier. The second return value is false for
// candidates that match no tier and are left out of the allocation.
func Classify(c Candidate) (Tier, bool) {
	switch {
	case c.Risk == models.RiskHigh || c.DaysRemaining <= urgentDays:
		return TierHigh, true
	case c.Risk == models.RiskMedium || c.DaysRemaining <= watchDays:
		return TierMedium, true
	case c.Risk == models.RiskLow:
		return TierLow, true
	default:
		return "", false
	}
}
