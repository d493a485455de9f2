package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr1hm/earthpulse/internal/facility"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// facilitiesToGeoJSON renders the NGOs, every category and the unclassified
// records as point features. Each feature carries its distance from the set's
// center in meters.
func facilitiesToGeoJSON(set models.FacilitySet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	center := set.Center.Point()

	for _, n := range set.NGOs {
		f := geojson.NewFeature(n.Coordinate().Point())
		f.ID = n.ID
		f.Properties["id"] = n.ID
		f.Properties["name"] = n.DisplayName()
		f.Properties["category"] = string(models.CategoryNGO)
		f.Properties["source_origin"] = string(n.Origin)
		if n.PlaceID != "" {
			f.Properties["place_id"] = n.PlaceID
		}
		f.Properties["distance_m"] = distance(center, f)
		fc.Append(f)
	}

	for _, cat := range models.Categories {
		for _, cf := range set.Categories[cat] {
			fc.Append(openDataFeature(center, cf, cat))
		}
	}
	for _, cf := range set.Other {
		fc.Append(openDataFeature(center, cf, models.LayerOther))
	}

	fc.ExtraMembers = geojson.Properties{
		"center": set.Center,
	}
	return fc
}

func openDataFeature(center orb.Point, cf models.ClassifiedFacility, layer models.Category) *geojson.Feature {
	m := facility.FromOpenData(cf)
	f := geojson.NewFeature(m.Coordinate().Point())
	f.ID = m.ID
	f.Properties["id"] = m.ID
	f.Properties["name"] = m.DisplayName()
	f.Properties["category"] = string(layer)
	f.Properties["source_origin"] = string(m.Origin)
	f.Properties["distance_m"] = distance(center, f)
	return f
}

func distance(center orb.Point, f *geojson.Feature) float64 {
	return math.Round(geo.Distance(center, f.Point()))
}

func writeGeoJSON(c *gin.Context, fc *geojson.FeatureCollection) {
	body, err := json.Marshal(fc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode facilities"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}
