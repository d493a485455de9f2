package models

import (
	"github.com/paulmach/osm"
)

// NotAvailable is the display value for a detail field that could not be resolved.
const NotAvailable = "Not available"

type Category string

const (
	CategoryNGO       Category = "ngo"
	CategoryPolice    Category = "police"
	CategoryFire      Category = "fire"
	CategoryHospital  Category = "hospital"
	CategoryShelter   Category = "shelter"
	CategoryWarehouse Category = "warehouse"
	CategoryAmbulance Category = "ambulance"
	CategoryEOC       Category = "eoc"
)

// Categories lists every facility category in classification priority order.
var Categories = []Category{
	CategoryNGO,
	CategoryPolice,
	CategoryFire,
	CategoryHospital,
	CategoryShelter,
	CategoryWarehouse,
	CategoryAmbulance,
	CategoryEOC,
}

// LayerOther is the map layer for positioned records that matched no
// category rule. It is never assigned by classification.
const LayerOther Category = "other"

// Layers lists every toggleable map layer.
var Layers = append(append([]Category(nil), Categories...), LayerOther)

// ParseLayer accepts any category name or "other".
func ParseLayer(s string) (Category, bool) {
	for _, c := range Layers {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type Origin string

const (
	OriginPlaces   Origin = "places"
	OriginOpenData Origin = "opendata"
)

// RawFacilityRecord is one element of an open-data query response. It only
// lives for a single fetch cycle.
type RawFacilityRecord struct {
	ExternalID int64
	Type       osm.Type
	Name       string
	Lat        *float64
	Lon        *float64
	Center     *Coordinate
	Tags       osm.Tags
}

// Coordinate returns the direct position of the record, falling back to its
// center point. ok is false when the record carries neither.
func (r RawFacilityRecord) Coordinate() (Coordinate, bool) {
	if r.Lat != nil && r.Lon != nil {
		return Coordinate{Lat: *r.Lat, Lon: *r.Lon}, true
	}
	if r.Center != nil {
		return *r.Center, true
	}
	return Coordinate{}, false
}

type ClassifiedFacility struct {
	ID       int64    `json:"id"`
	OSMType  osm.Type `json:"osm_type"`
	Name     string   `json:"name"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Category Category `json:"category"`
}

type PlacesResult struct {
	PlaceID string   `json:"place_id"`
	Name    string   `json:"name"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Types   []string `json:"types,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
}

type MergedFacility struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	PlaceID string   `json:"place_id,omitempty"`
	Origin  Origin   `json:"source_origin"`
	OSMID   int64    `json:"osm_id,omitempty"`
	OSMType osm.Type `json:"osm_type,omitempty"`
}

func (f MergedFacility) Coordinate() Coordinate {
	return Coordinate{Lat: f.Lat, Lon: f.Lon}
}

// DisplayName never returns an empty string.
func (f MergedFacility) DisplayName() string {
	if f.Name == "" {
		return "Unknown"
	}
	return f.Name
}

type FacilityDetail struct {
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Address string `json:"address"`
	Email   string `json:"email"`
	MapLink string `json:"map_link"`
}

// FacilitySet is the outcome of one aggregation cycle for a coordinate.
type FacilitySet struct {
	Center     Coordinate                        `json:"center"`
	NGOs       []MergedFacility                  `json:"ngos"`
	Categories map[Category][]ClassifiedFacility `json:"categories"`
	Other      []ClassifiedFacility              `json:"other"`
}
