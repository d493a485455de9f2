package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/session"
)

type sessionHandler func(c *gin.Context, s *session.Session)

// withSession resolves the :id parameter before calling next.
func (h *Handler) withSession(next sessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		next(c, s)
	}
}

type createSessionRequest struct {
	Notifications bool `json:"notifications"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	s := h.sessions.Create(req.Notifications)
	c.JSON(http.StatusCreated, s.Snapshot())
}

func (h *Handler) getSession(c *gin.Context, s *session.Session) {
	c.JSON(http.StatusOK, s.Snapshot())
}

type selectCityRequest struct {
	City string `json:"city" binding:"required"`
}

func (h *Handler) selectCity(c *gin.Context, s *session.Session) {
	var req selectCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	applied, err := h.service.SelectCity(c.Request.Context(), s, req.City)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "could not resolve city",
			"session": s.Snapshot(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "session": s.Snapshot()})
}

type locationRequest struct {
	Lat      *float64 `json:"lat" binding:"required"`
	Lon      *float64 `json:"lon" binding:"required"`
	Override bool     `json:"override"`
}

func (h *Handler) updateLocation(c *gin.Context, s *session.Session) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validCoordinate(*req.Lat, *req.Lon) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid lat and lon are required"})
		return
	}

	accepted, applied := h.service.UpdateLocation(c.Request.Context(), s, models.Coordinate{Lat: *req.Lat, Lon: *req.Lon}, req.Override)
	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"applied":  applied,
		"session":  s.Snapshot(),
	})
}

func (h *Handler) sessionFacilities(c *gin.Context, s *session.Session) {
	set, ok := s.VisibleFacilities()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no location selected"})
		return
	}
	writeGeoJSON(c, facilitiesToGeoJSON(set))
}

type layersRequest struct {
	All    *bool                    `json:"all"`
	Layers map[models.Category]bool `json:"layers"`
}

func (h *Handler) setLayers(c *gin.Context, s *session.Session) {
	var req layersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.All != nil {
		s.SetAllVisible(*req.All)
	}
	for name, v := range req.Layers {
		cat, ok := models.ParseLayer(string(name))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown layer: " + string(name)})
			return
		}
		s.SetVisible(cat, v)
	}
	c.JSON(http.StatusOK, gin.H{"visibility": s.Visibility()})
}

func (h *Handler) facilityDetails(c *gin.Context, s *session.Session) {
	d, err := h.service.Details(c.Request.Context(), s, c.Param("fid"))
	if errors.Is(err, session.ErrFacilityNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "facility not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) resetCache(c *gin.Context, s *session.Session) {
	s.ResetCache()
	c.Status(http.StatusNoContent)
}

func (h *Handler) predict(c *gin.Context, s *session.Session) {
	res, emitted, err := h.service.Predict(c.Request.Context(), s)
	if errors.Is(err, session.ErrNoLocation) {
		c.JSON(http.StatusConflict, gin.H{"error": "no location selected"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "prediction unavailable"})
		return
	}
	if emitted == nil {
		emitted = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"prediction": res, "alerts": emitted})
}

func (h *Handler) sessionAlerts(c *gin.Context, s *session.Session) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.History().List()})
}
