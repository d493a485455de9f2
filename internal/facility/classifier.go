// Package facility turns raw source records into the merged, enriched set of
// emergency facilities shown around a coordinate.
package facility

import (
	"github.com/mr1hm/earthpulse/internal/models"
)

type tagRule struct {
	key, value string
	category   models.Category
}

// classificationRules are evaluated in order; the first match wins.
var classificationRules = []tagRule{
	{"office", "ngo", models.CategoryNGO},
	{"amenity", "ngo", models.CategoryNGO},
	{"amenity", "police", models.CategoryPolice},
	{"emergency", "fire_station", models.CategoryFire},
	{"amenity", "hospital", models.CategoryHospital},
	{"amenity", "shelter", models.CategoryShelter},
	{"building", "warehouse", models.CategoryWarehouse},
	{"emergency", "ambulance_station", models.CategoryAmbulance},
	{"emergency", "operations_centre", models.CategoryEOC},
}

// Classification partitions records by category. Other holds positioned
// records that matched no rule.
type Classification struct {
	ByCategory map[models.Category][]models.ClassifiedFacility
	Other      []models.ClassifiedFacility
}

// Count returns the number of classified records across all categories.
func (c Classification) Count() int {
	n := 0
	for _, list := range c.ByCategory {
		n += len(list)
	}
	return n
}

// CategoryFor reports the category of a tag set, if any rule matches.
func CategoryFor(r models.RawFacilityRecord) (models.Category, bool) {
	for _, rule := range classificationRules {
		if r.Tags.Find(rule.key) == rule.value {
			return rule.category, true
		}
	}
	return "", false
}

// Classify assigns every positioned record to exactly one category.
func Classify(records []models.RawFacilityRecord) Classification {
	out := Classification{
		ByCategory: make(map[models.Category][]models.ClassifiedFacility, len(models.Categories)),
	}
	for _, c := range models.Categories {
		out.ByCategory[c] = []models.ClassifiedFacility{}
	}

	for _, r := range records {
		pos, ok := r.Coordinate()
		if !ok {
			continue
		}

		f := models.ClassifiedFacility{
			ID:      r.ExternalID,
			OSMType: r.Type,
			Name:    r.Name,
			Lat:     pos.Lat,
			Lon:     pos.Lon,
		}

		category, ok := CategoryFor(r)
		if !ok {
			out.Other = append(out.Other, f)
			continue
		}
		f.Category = category
		out.ByCategory[category] = append(out.ByCategory[category], f)
	}

	return out
}
