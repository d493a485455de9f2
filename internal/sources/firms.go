package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/paulmach/orb/geo"
)

// DefaultHotspotRadiusKm bounds the fire overlay around the map center.
const DefaultHotspotRadiusKm = 200

// FIRMSClient reads the active-fire CSV feed and filters detections by
// distance.
type FIRMSClient struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewFIRMSClient(feedURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *FIRMSClient {
	return &FIRMSClient{
		url:        feedURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Hotspots returns the detections within radiusKm of c, in feed order.
func (f *FIRMSClient) Hotspots(ctx context.Context, c models.Coordinate, radiusKm float64) ([]models.Hotspot, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultHotspotRadiusKm
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	f.metrics.SourceDuration.WithLabelValues("hotspots").Observe(time.Since(start).Seconds())
	if err != nil {
		f.metrics.SourceRequests.WithLabelValues("hotspots", "error").Inc()
		return nil, fmt.Errorf("firms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.metrics.SourceRequests.WithLabelValues("hotspots", "error").Inc()
		return nil, fmt.Errorf("firms error: status %d", resp.StatusCode)
	}

	all, err := parseHotspots(resp.Body)
	if err != nil {
		f.metrics.SourceRequests.WithLabelValues("hotspots", "error").Inc()
		return nil, err
	}

	center := c.Point()
	limit := radiusKm * 1000
	out := make([]models.Hotspot, 0)
	for _, h := range all {
		if geo.Distance(center, h.Point()) <= limit {
			out = append(out, h)
		}
	}
	f.metrics.SourceRequests.WithLabelValues("hotspots", outcome(len(out))).Inc()
	return out, nil
}

var errMissingColumns = errors.New("firms feed lacks latitude, longitude or confidence column")

// parseHotspots reads the feed by header name. Rows with unparseable
// coordinates are skipped.
func parseHotspots(r io.Reader) ([]models.Hotspot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read firms header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	latIdx, ok1 := col["latitude"]
	lonIdx, ok2 := col["longitude"]
	confIdx, ok3 := col["confidence"]
	if !ok1 || !ok2 || !ok3 {
		return nil, errMissingColumns
	}

	var out []models.Hotspot
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read firms row: %w", err)
		}
		if len(row) <= max(latIdx, lonIdx, confIdx) {
			continue
		}
		lat, err1 := strconv.ParseFloat(row[latIdx], 64)
		lon, err2 := strconv.ParseFloat(row[lonIdx], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, models.Hotspot{Lat: lat, Lon: lon, Confidence: row[confIdx]})
	}
	return out, nil
}
