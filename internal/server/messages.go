package server

import (
	"emg-monitor.klederson.com/internal/config"
	"emg-monitor.klederson.com/internal/emg"
)

// Command is a client request on the websocket.
//
//	{"type":"start"}
//	{"type":"calibrate","anchor":"max_rms"}
//	{"type":"params","params":{"fatigueIndex":1.5}}
type Command struct {
	Type   string       `json:"type"`
	Anchor string       `json:"anchor,omitempty"`
	Params *ParamsPatch `json:"params,omitempty"`
}

// ParamsPatch carries the fusion parameters to change. Omitted fields keep
// their current value.
type ParamsPatch struct {
	StrengthIndex *float64 `json:"strengthIndex,omitempty"`
	FatigueIndex  *float64 `json:"fatigueIndex,omitempty"`
	FISensitivity *float64 `json:"fiSensitivity,omitempty"`
	FLSensitivity *float64 `json:"flSensitivity,omitempty"`
}

func (p ParamsPatch) apply(dst *config.Params) {
	if p.StrengthIndex != nil {
		dst.StrengthIndex = *p.StrengthIndex
	}
	if p.FatigueIndex != nil {
		dst.FatigueIndex = *p.FatigueIndex
	}
	if p.FISensitivity != nil {
		dst.FISensitivity = *p.FISensitivity
	}
	if p.FLSensitivity != nil {
		dst.FLSensitivity = *p.FLSensitivity
	}
}

// Reply answers a Command.
type Reply struct {
	Type    string         `json:"type"`
	Command string         `json:"command"`
	OK      bool           `json:"ok"`
	Changed bool           `json:"changed"`
	Value   *float64       `json:"value,omitempty"`
	Params  *config.Params `json:"params,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (r Reply) fail(msg string) Reply {
	r.OK = false
	r.Error = msg
	return r
}

// Status is pushed periodically to every websocket client.
type Status struct {
	Type        string          `json:"type"`
	State       string          `json:"state"`
	Session     string          `json:"session,omitempty"`
	Seq         uint64          `json:"seq"`
	Reading     emg.Reading     `json:"reading"`
	Calibration calibrationView `json:"calibration"`
	Params      config.Params   `json:"params"`
	Chart       []float64       `json:"chart"`
}

// calibrationView renders absent anchors as null.
type calibrationView struct {
	BaselineRMS    *float64 `json:"baselineRms"`
	MaxRMS         *float64 `json:"maxRms"`
	ObservedMaxRMS float64  `json:"observedMaxRms"`
	BaselineMF     *float64 `json:"baselineMf"`
	MinMF          *float64 `json:"minMf"`
	ObservedMinMF  float64  `json:"observedMinMf"`
}

func newCalibrationView(c emg.Calibration) calibrationView {
	opt := func(a emg.Anchor) *float64 {
		if !a.Valid {
			return nil
		}
		v := a.Value
		return &v
	}
	return calibrationView{
		BaselineRMS:    opt(c.BaselineRMS),
		MaxRMS:         opt(c.MaxRMS),
		ObservedMaxRMS: c.ObservedMaxRMS,
		BaselineMF:     opt(c.BaselineMF),
		MinMF:          opt(c.MinMF),
		ObservedMinMF:  c.ObservedMinMF,
	}
}
