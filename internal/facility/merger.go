package facility

import (
	"math"
	"strconv"
	"strings"

	"github.com/mr1hm/earthpulse/internal/models"
)

// DuplicateDelta is the per-axis coordinate distance, in degrees, below which
// two facilities are considered the same place. It does not scale with
// latitude.
const DuplicateDelta = 0.0005

// Equivalent reports whether a and b plausibly describe the same facility.
// Empty names never match by name.
func Equivalent(a, b models.MergedFacility) bool {
	if a.Name != "" && b.Name != "" && strings.EqualFold(a.Name, b.Name) {
		return true
	}
	return math.Abs(a.Lat-b.Lat) < DuplicateDelta && math.Abs(a.Lon-b.Lon) < DuplicateDelta
}

// FromPlaces converts a places-search result into a merged entry.
func FromPlaces(p models.PlacesResult) models.MergedFacility {
	return models.MergedFacility{
		ID:      p.PlaceID,
		Name:    p.Name,
		Lat:     p.Lat,
		Lon:     p.Lon,
		PlaceID: p.PlaceID,
		Origin:  models.OriginPlaces,
	}
}

// FromOpenData converts a classified open-data facility into a merged entry.
func FromOpenData(f models.ClassifiedFacility) models.MergedFacility {
	return models.MergedFacility{
		ID:      "osm:" + string(f.OSMType) + ":" + strconv.FormatInt(f.ID, 10),
		Name:    f.Name,
		Lat:     f.Lat,
		Lon:     f.Lon,
		Origin:  models.OriginOpenData,
		OSMID:   f.ID,
		OSMType: f.OSMType,
	}
}

// Merge combines places results with open-data NGOs. Places entries come first
// in source order; an open-data entry is appended only when nothing already in
// the merged list is equivalent to it. The second return value is the number of
// open-data entries dropped as duplicates.
func Merge(places []models.PlacesResult, ngos []models.ClassifiedFacility) ([]models.MergedFacility, int) {
	merged := make([]models.MergedFacility, 0, len(places)+len(ngos))
	for _, p := range places {
		merged = append(merged, FromPlaces(p))
	}

	dropped := 0
	for _, n := range ngos {
		candidate := FromOpenData(n)
		if containsEquivalent(merged, candidate) {
			dropped++
			continue
		}
		merged = append(merged, candidate)
	}

	return merged, dropped
}

func containsEquivalent(list []models.MergedFacility, f models.MergedFacility) bool {
	for _, existing := range list {
		if Equivalent(existing, f) {
			return true
		}
	}
	return false
}
