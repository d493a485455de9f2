package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/geocode"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/repository"
	"github.com/mr1hm/earthpulse/internal/session"
	"github.com/mr1hm/earthpulse/internal/sources"
)

// Options wires the handler. Places may be nil, in which case the /google
// routes are not registered. The same holds for Waterways and Hotspots and
// their overlay routes.
type Options struct {
	Sessions      *session.Store
	Service       *session.Service
	Geocoder      session.Geocoder
	Aggregator    session.Aggregator
	Broadcaster   *alerts.Broadcaster
	Subscriptions repository.SubscriptionRepository
	AlertLog      repository.AlertLogRepository
	Places        sources.PlacesSource
	Waterways     WaterwaySource
	Hotspots      HotspotSource
	Logger        *slog.Logger
}

type Handler struct {
	sessions       *session.Store
	service        *session.Service
	geocoder       session.Geocoder
	aggregator     session.Aggregator
	broadcaster    *alerts.Broadcaster
	subscriptions  repository.SubscriptionRepository
	alertLog       repository.AlertLogRepository
	places         sources.PlacesSource
	waterwaySource WaterwaySource
	hotspotSource  HotspotSource
	logger         *slog.Logger
}

func NewHandler(opts Options) *Handler {
	return &Handler{
		sessions:       opts.Sessions,
		service:        opts.Service,
		geocoder:       opts.Geocoder,
		aggregator:     opts.Aggregator,
		broadcaster:    opts.Broadcaster,
		subscriptions:  opts.Subscriptions,
		alertLog:       opts.AlertLog,
		places:         opts.Places,
		waterwaySource: opts.Waterways,
		hotspotSource:  opts.Hotspots,
		logger:         opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/geocode", h.geocode)
	api.GET("/facilities", h.facilities)

	s := api.Group("/sessions")
	s.POST("", h.createSession)
	s.GET("/:id", h.withSession(h.getSession))
	s.POST("/:id/city", h.withSession(h.selectCity))
	s.POST("/:id/location", h.withSession(h.updateLocation))
	s.GET("/:id/facilities", h.withSession(h.sessionFacilities))
	s.PUT("/:id/layers", h.withSession(h.setLayers))
	s.GET("/:id/facilities/:fid/details", h.withSession(h.facilityDetails))
	s.DELETE("/:id/cache", h.withSession(h.resetCache))
	s.POST("/:id/predict", h.withSession(h.predict))
	s.GET("/:id/alerts", h.withSession(h.sessionAlerts))

	api.GET("/alerts/stream", h.alertStream)
	api.GET("/alerts/log", h.alertLogList)
	api.POST("/push/subscribe", h.subscribePush)

	api.GET("/flood_zones", h.floodZones)
	if h.waterwaySource != nil {
		api.GET("/waterways", h.waterways)
	}
	if h.hotspotSource != nil {
		api.GET("/hotspots", h.hotspots)
	}

	if h.places != nil {
		g := r.Group("/google")
		g.GET("/nearby_ngos", h.nearbyNGOs)
		g.GET("/search", h.searchPlace)
		g.GET("/details", h.placeDetails)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) geocode(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	coord, err := h.geocoder.Search(c.Request.Context(), q)
	if errors.Is(err, geocode.ErrNoMatch) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no match"})
		return
	}
	if err != nil {
		h.logger.Warn("geocode failed", "query", q, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding unavailable"})
		return
	}
	c.JSON(http.StatusOK, coord)
}

func (h *Handler) facilities(c *gin.Context) {
	coord, ok := coordinateQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}

	radius := 0
	if v := c.Query("radius"); v != "" {
		r, err := strconv.Atoi(v)
		if err != nil || r < 100 || r > 50000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be between 100 and 50000"})
			return
		}
		radius = r
	}

	set := h.aggregator.Aggregate(c.Request.Context(), coord, radius)
	writeGeoJSON(c, facilitiesToGeoJSON(set))
}

func coordinateQuery(c *gin.Context) (models.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	if err1 != nil || err2 != nil || !validCoordinate(lat, lon) {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lat: lat, Lon: lon}, true
}

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
