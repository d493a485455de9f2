package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/repository"
)

const streamHeartbeat = 15 * time.Second

// alertStream relays live alerts as server-sent events until the client
// disconnects or the broadcaster closes.
func (h *Handler) alertStream(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("alert", a)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			c.Writer.Flush()
		}
	}
}

func (h *Handler) alertLogList(c *gin.Context) {
	filter := repository.Filter{
		Limit: 50,
	}

	if city := c.Query("city"); city != "" {
		filter.City = &city
	}
	if hz := c.Query("hazard"); hz != "" {
		hazard := models.Hazard(strings.ToLower(hz))
		if hazard != models.HazardFlood && hazard != models.HazardWildfire {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hazard must be flood or wildfire"})
			return
		}
		filter.Hazard = &hazard
	}
	if t := c.Query("tier"); t != "" {
		tier := models.AlertTier(strings.ToUpper(t))
		if tier != models.AlertTierHigh && tier != models.AlertTierMedium {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tier must be HIGH or MEDIUM"})
			return
		}
		filter.Tier = &tier
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.Since = &t
		} else if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}

	list, err := h.alertLog.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}
	if list == nil {
		list = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list})
}

type subscribeRequest struct {
	Subscription json.RawMessage `json:"subscription"`
}

func (h *Handler) subscribePush(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Subscription) == 0 || string(req.Subscription) == "null" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription missing"})
		return
	}

	var sub struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.Unmarshal(req.Subscription, &sub); err != nil || sub.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription endpoint missing"})
		return
	}

	err := h.subscriptions.SaveSubscription(c.Request.Context(), &models.PushSubscription{
		Endpoint: sub.Endpoint,
		Raw:      req.Subscription,
	})
	if err != nil {
		h.logger.Error("failed to save subscription", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
