package models

import (
	"fmt"

	"github.com/paulmach/orb"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the coordinate in orb's lon/lat order.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
