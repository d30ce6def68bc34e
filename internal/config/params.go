package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	ParamMin = 0.0
	ParamMax = 2.0
)

// Params are the user-tunable fusion and display multipliers.
type Params struct {
	StrengthIndex float64 `toml:"strength_index" json:"strengthIndex"`
	FatigueIndex  float64 `toml:"fatigue_index" json:"fatigueIndex"`
	FISensitivity float64 `toml:"fi_sensitivity" json:"fiSensitivity"`
	FLSensitivity float64 `toml:"fl_sensitivity" json:"flSensitivity"`
}

// DefaultParams returns every multiplier at 1.0.
func DefaultParams() Params {
	return Params{
		StrengthIndex: 1,
		FatigueIndex:  1,
		FISensitivity: 1,
		FLSensitivity: 1,
	}
}

// Clamped returns a copy with every field limited to [ParamMin, ParamMax].
func (p Params) Clamped() Params {
	return Params{
		StrengthIndex: clampParam(p.StrengthIndex),
		FatigueIndex:  clampParam(p.FatigueIndex),
		FISensitivity: clampParam(p.FISensitivity),
		FLSensitivity: clampParam(p.FLSensitivity),
	}
}

// DisplayStrength applies the strength index to a raw strength reading.
func (p Params) DisplayStrength(strength float64) float64 {
	v := strength * p.StrengthIndex
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LoadParams reads a TOML params file. Missing keys keep their defaults and
// out-of-range values are clamped.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return DefaultParams(), fmt.Errorf("decode params %s: %w", path, err)
	}
	return p.Clamped(), nil
}

// SaveParams writes params to path in TOML form.
func SaveParams(path string, p Params) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create params %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("encode params %s: %w", path, err)
	}
	return nil
}

func clampParam(v float64) float64 {
	if v != v { // NaN
		return 1
	}
	if v < ParamMin {
		return ParamMin
	}
	if v > ParamMax {
		return ParamMax
	}
	return v
}
