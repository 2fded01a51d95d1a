package models

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var policyValidate = validator.New()

// Policy holds the markup constants used to synthesize suggested tiers.
// It is loaded once at startup and passed by value.
type Policy struct {
	AlphaTop          float64 `yaml:"alpha_top" json:"alpha_top" default:"0.40" validate:"gt=0,lte=1"`
	AlphaMid          float64 `yaml:"alpha_mid" json:"alpha_mid" default:"0.50" validate:"gt=0,lte=1"`
	Floor             float64 `yaml:"floor" json:"floor" default:"0.0002" validate:"gte=0,lt=1"`
	LevMax            float64 `yaml:"lev_max" json:"lev_max" default:"125" validate:"gte=1"`
	LevStep           float64 `yaml:"lev_step" json:"lev_step" default:"5" validate:"gt=0"`
	DefaultLeverage   float64 `yaml:"default_leverage" json:"default_leverage" default:"10" validate:"gt=0"`
	TopLeverageMarkup float64 `yaml:"top_leverage_markup" json:"top_leverage_markup" default:"1.10" validate:"gt=0"`
	MidLeverageMarkup float64 `yaml:"mid_leverage_markup" json:"mid_leverage_markup" default:"0.90" validate:"gt=0"`
	TopMMRSafety      float64 `yaml:"top_mmr_safety" json:"top_mmr_safety" default:"0.90" validate:"gt=0"`
	MidMMRCap         float64 `yaml:"mid_mmr_cap" json:"mid_mmr_cap" default:"1.00" validate:"gt=0"`
	UnionPrecision    int     `yaml:"union_precision" json:"union_precision" default:"4" validate:"gte=0,lte=12"`
}

// DefaultPolicy returns the policy with every field at its default.
func DefaultPolicy() Policy {
	var p Policy
	_ = defaults.Set(&p)
	return p
}

// Validate rejects a policy the synthesizer cannot run with.
func (p Policy) Validate() error {
	if err := policyValidate.Struct(p); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if p.LevStep > p.LevMax {
		return fmt.Errorf("policy: lev_step %v exceeds lev_max %v", p.LevStep, p.LevMax)
	}
	return nil
}
