package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// floodZoneHalfSize is the half edge, in degrees, of the square flood overlay.
const floodZoneHalfSize = 0.07

type WaterwaySource interface {
	FetchWaterways(ctx context.Context, c models.Coordinate, radius int) ([]models.Waterway, error)
}

type HotspotSource interface {
	Hotspots(ctx context.Context, c models.Coordinate, radiusKm float64) ([]models.Hotspot, error)
}

func (h *Handler) waterways(c *gin.Context) {
	coord, ok := coordinateQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}

	ways, err := h.waterwaySource.FetchWaterways(c.Request.Context(), coord, 0)
	if err != nil {
		h.logger.Warn("waterway fetch failed", "coord", coord.String(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "waterways unavailable"})
		return
	}
	writeGeoJSON(c, waterwaysToGeoJSON(ways))
}

func (h *Handler) floodZones(c *gin.Context) {
	coord, ok := coordinateQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat/lon required"})
		return
	}
	writeGeoJSON(c, floodZone(coord))
}

// hotspots degrades to an empty list when the feed is unavailable.
func (h *Handler) hotspots(c *gin.Context) {
	coord, ok := coordinateQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}

	radiusKm := 0.0
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 || r > 2000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius_km must be between 0 and 2000"})
			return
		}
		radiusKm = r
	}

	list, err := h.hotspotSource.Hotspots(c.Request.Context(), coord, radiusKm)
	if err != nil {
		h.logger.Warn("hotspot fetch failed", "coord", coord.String(), "error", err)
		list = nil
	}
	if list == nil {
		list = []models.Hotspot{}
	}
	c.JSON(http.StatusOK, list)
}

func waterwaysToGeoJSON(ways []models.Waterway) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, w := range ways {
		f := geojson.NewFeature(w.Line)
		f.Properties["id"] = w.ID
		f.Properties["type"] = w.Kind
		fc.Append(f)
	}
	return fc
}

// floodZone is a fixed square risk polygon centered on c.
func floodZone(c models.Coordinate) *geojson.FeatureCollection {
	d := floodZoneHalfSize
	ring := orb.Ring{
		{c.Lon - d, c.Lat - d},
		{c.Lon + d, c.Lat - d},
		{c.Lon + d, c.Lat + d},
		{c.Lon - d, c.Lat + d},
		{c.Lon - d, c.Lat - d},
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["zone"] = "Flood Risk"
	f.Properties["severity"] = 0.7

	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}
