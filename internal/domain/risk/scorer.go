// Package risk scores the spoilage risk of produce batches from storage readings
// and remaining shelf life.
package risk

import (
	"math"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// Params holds the tunable constants of the scoring heuristic.
type Params struct {
	// TemperatureScale is the deviation in °C that maps to a full temperature term.
	TemperatureScale float64
	// HumidityScale is the deviation in % RH that maps to a full humidity term.
	HumidityScale     float64
	TemperatureWeight float64
	HumidityWeight    float64

	CriticalDays  int
	CriticalFloor float64
	WarningDays   int
	WarningFloor  float64

	HighThreshold   float64
	MediumThreshold float64
}

// DefaultParams returns the calibrated Cavendish defaults.
func DefaultParams() Params {
	return Params{
		TemperatureScale:  5,
		HumidityScale:     10,
		TemperatureWeight: 0.6,
		HumidityWeight:    0.4,
		CriticalDays:      2,
		CriticalFloor:     0.8,
		WarningDays:       4,
		WarningFloor:      0.5,
		HighThreshold:     0.7,
		MediumThreshold:   0.4,
	}
}

// Validate rejects parameter sets that would break the [0, 1] factor invariant.
func (p Params) Validate() error {
	switch {
	case p.TemperatureScale <= 0:
		return &models.ValidationError{Field: "risk.temperature_scale", Reason: "must be positive"}
	case p.HumidityScale <= 0:
		return &models.ValidationError{Field: "risk.humidity_scale", Reason: "must be positive"}
	case p.TemperatureWeight < 0 || p.HumidityWeight < 0:
		return &models.ValidationError{Field: "risk.weights", Reason: "must be non-negative"}
	case p.CriticalFloor < 0 || p.CriticalFloor > 1 || p.WarningFloor < 0 || p.WarningFloor > 1:
		return &models.ValidationError{Field: "risk.floors", Reason: "must be within [0, 1]"}
	case p.WarningDays < p.CriticalDays:
		return &models.ValidationError{Field: "risk.warning_days", Reason: "must not be below critical days"}
	case p.MediumThreshold > p.HighThreshold:
		return &models.ValidationError{Field: "risk.medium_threshold", Reason: "must not exceed high threshold"}
	}
	return nil
}

// Assessment is the outcome of scoring one batch.
type Assessment struct {
	RiskFactor float64          `json:"risk_factor"`
	Risk       models.RiskLevel `json:"adjusted_risk"`
	// Refined is false when readings were missing and Risk is the persisted category.
	Refined bool `json:"refined"`
}

// Scorer computes spoilage risk. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	params Params
}

// NewScorer builds a scorer, falling back to DefaultParams for invalid input.
func NewScorer(params Params) *Scorer {
	if params.Validate() != nil {
		params = DefaultParams()
	}
	return &Scorer{params: params}
}

// Params returns the parameters in use.
func (s *Scorer) Params() Params {
	return s.params
}

// Score evaluates a batch snapshot. Missing readings are not an error: the
// persisted category is returned with a zero factor.
func (s *Scorer) Score(batch models.Batch) (Assessment, error) {
	if !batch.HasReadings() {
		return Assessment{RiskFactor: 0, Risk: batch.SpoilageRisk}, nil
	}

	if err := batch.TemperatureRequirement.Validate("temperature_requirement"); err != nil {
		return Assessment{}, err
	}
	if err := batch.HumidityRequirement.Validate("humidity_requirement"); err != nil {
		return Assessment{}, err
	}

	tempDeviation := Deviation(*batch.TemperatureActual, batch.TemperatureRequirement)
	humidDeviation := Deviation(*batch.HumidityActual, batch.HumidityRequirement)

	factor := s.environmentFactor(tempDeviation, humidDeviation)
	factor = s.applyDaysFloor(factor, batch.DaysRemaining)

	return Assessment{
		RiskFactor: factor,
		Risk:       s.Categorize(factor),
		Refined:    true,
	}, nil
}

// Categorize maps a risk factor onto a category; thresholds are inclusive.
func (s *Scorer) Categorize(factor float64) models.RiskLevel {
	switch {
	case factor >= s.params.HighThreshold:
		return models.RiskHigh
	case factor >= s.params.MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Deviation is the distance from actual to the nearer boundary of r. Readings inside
// the range still yield a non-zero deviation unless they sit on a boundary.
func Deviation(actual float64, r models.Range) float64 {
	return math.Min(math.Abs(actual-r.Min), math.Abs(actual-r.Max))
}

func (s *Scorer) environmentFactor(tempDeviation, humidDeviation float64) float64 {
	p := s.params
	factor := (tempDeviation/p.TemperatureScale)*p.TemperatureWeight +
		(humidDeviation/p.HumidityScale)*p.HumidityWeight
	return math.Max(0, math.Min(1, factor))
}

func (s *Scorer) applyDaysFloor(factor float64, daysRemaining int) float64 {
	p := s.params
	switch {
	case daysRemaining <= p.CriticalDays:
		return math.Max(factor, p.CriticalFloor)
	case daysRemaining <= p.WarningDays:
		return math.Max(factor, p.WarningFloor)
	default:
		return factor
	}
}
