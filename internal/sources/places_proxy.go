package sources

import (
	"context"
	"encoding/json"
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

// PlacesProxyClient talks to a backend that wraps the Google Places API, so the
// API key never leaves the backend.
type PlacesProxyClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewPlacesProxyClient(baseURL string, metrics *observability.Metrics, logger *slog.Logger) *PlacesProxyClient {
	return &PlacesProxyClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		metrics:    metrics,
		logger:     logger,
	}
}

var _ PlacesSource = (*PlacesProxyClient)(nil)

type nearbyResponse struct {
	Results []nearbyPlace `json:"results"`
}

type nearbyPlace struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Types  []string `json:"types"`
	Rating *float64 `json:"rating"`
}

func (p *PlacesProxyClient) NearbyNGOs(ctx context.Context, c models.Coordinate) ([]models.PlacesResult, error) {
	var data nearbyResponse
	if err := p.get(ctx, "places", "/google/nearby_ngos", coordParams(c), &data); err != nil {
		return nil, err
	}

	results := make([]models.PlacesResult, 0, len(data.Results))
	for _, pl := range data.Results {
		if pl.PlaceID == "" {
			continue
		}
		results = append(results, models.PlacesResult{
			PlaceID: pl.PlaceID,
			Name:    pl.Name,
			Lat:     pl.Geometry.Location.Lat,
			Lon:     pl.Geometry.Location.Lng,
			Types:   pl.Types,
			Rating:  pl.Rating,
		})
	}
	return results, nil
}

// textSearchResponse covers both the legacy "results" and the newer "places"
// response shapes.
type textSearchResponse struct {
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
	Places []struct {
		ID string `json:"id"`
	} `json:"places"`
}

func (p *PlacesProxyClient) SearchText(ctx context.Context, name string, c models.Coordinate) (string, error) {
	params := coordParams(c)
	params.Set("name", name)

	var data textSearchResponse
	if err := p.get(ctx, "search", "/google/search", params, &data); err != nil {
		return "", err
	}

	if len(data.Results) > 0 && data.Results[0].PlaceID != "" {
		return data.Results[0].PlaceID, nil
	}
	if len(data.Places) > 0 && data.Places[0].ID != "" {
		return data.Places[0].ID, nil
	}
	return "", nil
}

func (p *PlacesProxyClient) Details(ctx context.Context, placeID string) (map[string]any, error) {
	var data map[string]any
	if err := p.get(ctx, "details", "/google/details", url.Values{"place_id": {placeID}}, &data); err != nil {
		return nil, err
	}
	if r, ok := data["result"].(map[string]any); ok {
		return r, nil
	}
	return data, nil
}

func (p *PlacesProxyClient) get(ctx context.Context, source, path string, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	p.metrics.SourceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("places proxy error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", source, err)
	}
	return nil
}

func coordParams(c models.Coordinate) url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(c.Lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(c.Lon, 'f', -1, 64)},
	}
}
