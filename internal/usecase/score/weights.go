package score

import (
	"fmt"
	"sort"
	"strings"
)

// Weights are the additive score adjustments. All except SourceBoosts must be non-negative.
type Weights struct {
	BrandMatch       float64            `yaml:"brand_match"`
	ModelMatch       float64            `yaml:"model_match"`
	PriceFit         float64            `yaml:"price_fit"`
	MileageFit       float64            `yaml:"mileage_fit"`
	YearFit          float64            `yaml:"year_fit"`
	FuelMatch        float64            `yaml:"fuel_match"`
	ConditionMatch   float64            `yaml:"condition_match"`
	ColorMatch       float64            `yaml:"color_match"`
	RegionMatch      float64            `yaml:"region_match"`
	RangePenalty     float64            `yaml:"range_penalty"`
	ExclusionPenalty float64            `yaml:"exclusion_penalty"`
	SaleIntent       float64            `yaml:"sale_intent"`
	SourceBoosts     map[string]float64 `yaml:"source_boosts"`
}

// DefaultWeights returns the tuned defaults. A brand match outweighs any single
// range fit, and one exclusion hit outweighs every positive signal combined.
func DefaultWeights() Weights {
	return Weights{
		BrandMatch:       0.15,
		ModelMatch:       0.05,
		PriceFit:         0.10,
		MileageFit:       0.10,
		YearFit:          0.05,
		FuelMatch:        0.05,
		ConditionMatch:   0.05,
		ColorMatch:       0.02,
		RegionMatch:      0.03,
		RangePenalty:     0.10,
		ExclusionPenalty: 0.50,
		SaleIntent:       0.05,
	}
}

// Validate checks that the weights are usable.
func (w Weights) Validate() error {
	named := map[string]float64{
		"brand_match":       w.BrandMatch,
		"model_match":       w.ModelMatch,
		"price_fit":         w.PriceFit,
		"mileage_fit":       w.MileageFit,
		"year_fit":          w.YearFit,
		"fuel_match":        w.FuelMatch,
		"condition_match":   w.ConditionMatch,
		"color_match":       w.ColorMatch,
		"region_match":      w.RegionMatch,
		"range_penalty":     w.RangePenalty,
		"exclusion_penalty": w.ExclusionPenalty,
		"sale_intent":       w.SaleIntent,
	}

	var errs []string
	for name, v := range named {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1]", name))
		}
	}
	for source, v := range w.SourceBoosts {
		if v < -1 || v > 1 {
			errs = append(errs, fmt.Sprintf("source_boosts[%s] must be in [-1,1]", source))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	sort.Strings(errs)
	return fmt.Errorf("invalid scoring weights: %s", strings.Join(errs, "; "))
}
