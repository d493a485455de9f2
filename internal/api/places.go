package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The /google routes expose the configured places source in the response
// shape the places proxy client reads, so one deployment can serve another.

type placeLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type placeGeometry struct {
	Location placeLocation `json:"location"`
}

type nearbyPlace struct {
	PlaceID  string        `json:"place_id"`
	Name     string        `json:"name"`
	Geometry placeGeometry `json:"geometry"`
	Types    []string      `json:"types,omitempty"`
	Rating   *float64      `json:"rating,omitempty"`
}

func (h *Handler) nearbyNGOs(c *gin.Context) {
	coord, ok := coordinateQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat & lon required"})
		return
	}

	found, err := h.places.NearbyNGOs(c.Request.Context(), coord)
	if err != nil {
		h.logger.Warn("nearby search failed", "coord", coord.String(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "places search failed"})
		return
	}

	results := make([]nearbyPlace, 0, len(found))
	for _, p := range found {
		results = append(results, nearbyPlace{
			PlaceID:  p.PlaceID,
			Name:     p.Name,
			Geometry: placeGeometry{Location: placeLocation{Lat: p.Lat, Lng: p.Lon}},
			Types:    p.Types,
			Rating:   p.Rating,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) searchPlace(c *gin.Context) {
	name := c.Query("name")
	coord, ok := coordinateQuery(c)
	if name == "" || !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, lat & lon required"})
		return
	}

	id, err := h.places.SearchText(c.Request.Context(), name, coord)
	if err != nil {
		h.logger.Warn("text search failed", "name", name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "places search failed"})
		return
	}

	results := []gin.H{}
	if id != "" {
		results = append(results, gin.H{"place_id": id})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) placeDetails(c *gin.Context) {
	id := c.Query("place_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "place_id required"})
		return
	}

	d, err := h.places.Details(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("place details failed", "place_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "place details failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": d})
}
