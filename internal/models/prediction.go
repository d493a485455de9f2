package models

import (
	"encoding/json"
	"fmt"
)

type Hazard string

const (
	HazardFlood    Hazard = "flood"
	HazardWildfire Hazard = "wildfire"
)

func (h Hazard) Title() string {
	switch h {
	case HazardFlood:
		return "Flood"
	case HazardWildfire:
		return "Wildfire"
	default:
		return string(h)
	}
}

type HazardRisk struct {
	Probability float64 `json:"probability"`
	Label       string  `json:"label"`
}

// UnmarshalJSON accepts either {"probability":..,"label":..} or a bare number.
func (r *HazardRisk) UnmarshalJSON(data []byte) error {
	var p float64
	if err := json.Unmarshal(data, &p); err == nil {
		r.Probability = p
		r.Label = ""
		return nil
	}

	type plain HazardRisk
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("hazard risk: %w", err)
	}
	*r = HazardRisk(v)
	return nil
}

type PredictionResult struct {
	City     string     `json:"city"`
	Flood    HazardRisk `json:"flood"`
	Wildfire HazardRisk `json:"wildfire"`
}

func (p PredictionResult) Risk(h Hazard) HazardRisk {
	if h == HazardWildfire {
		return p.Wildfire
	}
	return p.Flood
}
