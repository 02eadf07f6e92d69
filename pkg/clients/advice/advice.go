// Package advice holds the prompt and response contract shared by the AI
// distribution advisors.
package advice

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// ErrInvalidResponse marks a reply that does not carry a usable plan.
var ErrInvalidResponse = errors.New("ai response has no recommendations")

// Request is the inventory snapshot an advisor reasons about.
type Request struct {
	Batches  []models.Batch
	Channels models.ChannelTable
}

// Result is a decoded advisor reply.
type Result struct {
	Recommendations []models.AllocationRecommendation `json:"recommendations"`
	TotalRevenue    float64                           `json:"total_potential_revenue_php"`
	Summary         string                            `json:"summary"`
}

const responseFormat = `{"recommendations":[{"priority":"string","description":"string","allocation":{"<channel>":kg},"batches":[id,...],"reason":"string"}],"total_potential_revenue_php":number,"summary":"string"}`

// BuildPrompt describes the stock and the demand channels.
func BuildPrompt(req Request) string {
	var (
		totalKg   float64
		totalDays int
		highRisk  int
		shortLife int
	)
	for _, b := range req.Batches {
		totalKg += b.QuantityKg
		totalDays += b.DaysRemaining
		if b.SpoilageRisk == models.RiskHigh {
			highRisk++
		}
		if b.DaysRemaining <= 3 {
			shortLife++
		}
	}
	avgDays := 0.0
	if len(req.Batches) > 0 {
		avgDays = math.Round(float64(totalDays) / float64(len(req.Batches)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following data:\n\n")
	fmt.Fprintf(&sb, "1. We have %d batches of Cavendish bananas in storage.\n", len(req.Batches))
	fmt.Fprintf(&sb, "2. The total quantity is %s kg.\n", formatNumber(totalKg))
	fmt.Fprintf(&sb, "3. The average remaining shelf life is %s days.\n", formatNumber(avgDays))
	fmt.Fprintf(&sb, "4. %d batches are at high risk of spoilage.\n", highRisk)
	fmt.Fprintf(&sb, "5. %d batches have 3 or fewer days of shelf life remaining.\n\n", shortLife)

	sb.WriteString("Batches (id, kg, days remaining, risk):\n")
	for _, b := range req.Batches {
		fmt.Fprintf(&sb, "- %d, %s, %d, %s\n", b.ID, formatNumber(b.QuantityKg), b.DaysRemaining, b.SpoilageRisk)
	}

	sb.WriteString("\nProvide specific distribution recommendations for how to allocate these bananas to:\n")
	for _, ch := range req.Channels {
		fmt.Fprintf(&sb, "- %s (transportation: %d day(s), demand: %s kg, price: PHP %s/kg)\n",
			ch.Name, ch.TransportationTimeDays, formatNumber(ch.DemandKg), formatNumber(ch.PricePerKg))
	}
	sb.WriteString("\nFocus on minimizing spoilage and maximizing profit. Never allocate more than a channel's demand.\n")
	sb.WriteString("Reply with a single JSON object and nothing else, using exactly this structure:\n")
	sb.WriteString(responseFormat)
	return sb.String()
}

// StripFences removes markdown code fences around a JSON reply.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// ExtractJSON returns the outermost object in raw, or "" when there is none.
func ExtractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}

// Decode parses an advisor reply. The recommendations field must be present.
func Decode(text string) (Result, error) {
	body := ExtractJSON(StripFences(text))
	if body == "" {
		return Result{}, fmt.Errorf("%w: no JSON object in reply", ErrInvalidResponse)
	}

	var payload struct {
		Recommendations *[]models.AllocationRecommendation `json:"recommendations"`
		TotalRevenue    float64                            `json:"total_potential_revenue_php"`
		Summary         string                             `json:"summary"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Result{}, fmt.Errorf("decode ai response: %w", err)
	}
	if payload.Recommendations == nil {
		return Result{}, ErrInvalidResponse
	}

	return Result{
		Recommendations: *payload.Recommendations,
		TotalRevenue:    payload.TotalRevenue,
		Summary:         payload.Summary,
	}, nil
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
