package models

import "github.com/paulmach/orb"

// Waterway is an open-data water feature drawn as a line on the flood overlay.
type Waterway struct {
	ID   int64
	Kind string
	Line orb.LineString
}

// Hotspot is one satellite fire detection.
type Hotspot struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Confidence string  `json:"confidence"`
}

func (h Hotspot) Point() orb.Point {
	return orb.Point{h.Lon, h.Lat}
}
