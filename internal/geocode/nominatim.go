package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/paulmach/osm"
)

// ErrNoMatch is returned when the lookup succeeds but yields no results.
var ErrNoMatch = errors.New("geocode: no match")

// Client resolves place names against a Nominatim instance.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns the coordinate of the first match for query.
func (c *Client) Search(ctx context.Context, query string) (models.Coordinate, error) {
	params := url.Values{
		"format": {"json"},
		"q":      {query},
		"limit":  {"1"},
	}

	var results []searchResult
	if err := c.get(ctx, "geocode", c.baseURL+"/search?"+params.Encode(), &results); err != nil {
		return models.Coordinate{}, err
	}
	if len(results) == 0 {
		c.metrics.SourceRequests.WithLabelValues("geocode", "empty").Inc()
		return models.Coordinate{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("parse lat %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("parse lon %q: %w", results[0].Lon, err)
	}

	c.metrics.SourceRequests.WithLabelValues("geocode", "success").Inc()
	return models.Coordinate{Lat: lat, Lon: lon}, nil
}

type detailsResult struct {
	ExtraTags map[string]string `json:"extratags"`
}

// ExtraTags returns the extratags of a single OSM object.
func (c *Client) ExtraTags(ctx context.Context, osmType osm.Type, osmID int64) (map[string]string, error) {
	params := url.Values{
		"osmtype": {osmTypeLetter(osmType)},
		"osmid":   {strconv.FormatInt(osmID, 10)},
		"format":  {"json"},
	}

	var res detailsResult
	if err := c.get(ctx, "nominatim_details", c.baseURL+"/details?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	c.metrics.SourceRequests.WithLabelValues("nominatim_details", "success").Inc()
	return res.ExtraTags, nil
}

func (c *Client) get(ctx context.Context, source, fullURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.SourceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.SourceRequests.WithLabelValues(source, "error").Inc()
		return fmt.Errorf("%s request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.SourceRequests.WithLabelValues(source, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nominatim error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.metrics.SourceRequests.WithLabelValues(source, "error").Inc()
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func osmTypeLetter(t osm.Type) string {
	switch t {
	case osm.TypeWay:
		return "W"
	case osm.TypeRelation:
		return "R"
	default:
		return "N"
	}
}
