// Package prediction queries the external flood and wildfire risk service.
package prediction

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
)

var ErrNoTarget = errors.New("prediction: city or coordinate required")

// Query selects what to predict for. City takes precedence over Coordinate.
type Query struct {
	City       string
	Coordinate *models.Coordinate
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// Predict fetches the risk for q. The result's City falls back to q.City when
// the service leaves it out.
func (c *Client) Predict(ctx context.Context, q Query) (models.PredictionResult, error) {
	params := url.Values{}
	switch {
	case q.City != "":
		params.Set("city", q.City)
	case q.Coordinate != nil:
		params.Set("lat", strconv.FormatFloat(q.Coordinate.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Coordinate.Lon, 'f', -1, 64))
	default:
		return models.PredictionResult{}, ErrNoTarget
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predict?"+params.Encode(), nil)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.SourceDuration.WithLabelValues("prediction").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.SourceRequests.WithLabelValues("prediction", "error").Inc()
		return models.PredictionResult{}, fmt.Errorf("prediction request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.metrics.SourceRequests.WithLabelValues("prediction", "error").Inc()
		return models.PredictionResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.SourceRequests.WithLabelValues("prediction", "error").Inc()
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			return models.PredictionResult{}, fmt.Errorf("prediction service: status %d: %s", resp.StatusCode, eb.Error)
		}
		return models.PredictionResult{}, fmt.Errorf("prediction service: status %d", resp.StatusCode)
	}

	var res models.PredictionResult
	if err := json.Unmarshal(body, &res); err != nil {
		c.metrics.SourceRequests.WithLabelValues("prediction", "error").Inc()
		return models.PredictionResult{}, fmt.Errorf("decode prediction: %w", err)
	}
	if res.City == "" {
		res.City = q.City
	}

	c.metrics.SourceRequests.WithLabelValues("prediction", "success").Inc()
	c.logger.Debug("prediction fetched",
		"city", res.City,
		"flood", res.Flood.Probability,
		"wildfire", res.Wildfire.Probability,
	)
	return res, nil
}
