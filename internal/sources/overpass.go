package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// DefaultWaterwayRadius is the search radius of the water overlay in meters.
const DefaultWaterwayRadius = 15000

// facilityPredicates are the tag filters sent to the open-data query service.
var facilityPredicates = [][2]string{
	{"amenity", "shelter"},
	{"amenity", "social_facility"},
	{"social_facility:for", "disaster"},
	{"office", "ngo"},
	{"office", "charity"},
	{"emergency", "operations_centre"},
	{"emergency", "fire_station"},
	{"emergency", "ambulance_station"},
	{"building", "warehouse"},
	{"amenity", "police"},
	{"amenity", "hospital"},
}

// OverpassClient queries an Overpass API interpreter for emergency facilities.
type OverpassClient struct {
	url        string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewOverpassClient(endpoint, userAgent string, metrics *observability.Metrics, logger *slog.Logger) *OverpassClient {
	return &OverpassClient{
		url:       endpoint,
		userAgent: userAgent,
		// Per-call deadlines come from the fetcher's context.
		httpClient: &http.Client{},
		metrics:    metrics,
		logger:     logger,
	}
}

// BuildFacilityQuery renders the Overpass QL query for all facility predicates
// within radius meters of c.
func BuildFacilityQuery(c models.Coordinate, radius int) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, p := range facilityPredicates {
		fmt.Fprintf(&b, "nwr[%q=%q](around:%d,%.6f,%.6f);\n", p[0], p[1], radius, c.Lat, c.Lon)
	}
	b.WriteString(");\nout center tags;\n")
	return b.String()
}

// waterwayPredicates select rivers, canals, drains and standing water. An empty
// value matches any value of the key.
var waterwayPredicates = []struct {
	kind, key, value string
}{
	{"way", "waterway", ""},
	{"relation", "waterway", ""},
	{"way", "natural", "water"},
	{"relation", "natural", "water"},
	{"way", "landuse", "reservoir"},
}

// BuildWaterwayQuery renders the Overpass QL query for water features within
// radius meters of c, with full geometry.
func BuildWaterwayQuery(c models.Coordinate, radius int) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, p := range waterwayPredicates {
		if p.value == "" {
			fmt.Fprintf(&b, "%s[%q](around:%d,%.6f,%.6f);\n", p.kind, p.key, radius, c.Lat, c.Lon)
			continue
		}
		fmt.Fprintf(&b, "%s[%q=%q](around:%d,%.6f,%.6f);\n", p.kind, p.key, p.value, radius, c.Lat, c.Lon)
	}
	b.WriteString(");\nout geom;\n")
	return b.String()
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string             `json:"type"`
	ID     int64              `json:"id"`
	Lat    *float64           `json:"lat"`
	Lon    *float64           `json:"lon"`
	Center *models.Coordinate `json:"center"`
	Tags   map[string]string  `json:"tags"`

	Geometry []models.Coordinate `json:"geometry"`
}

// FetchFacilities returns the raw open-data records around c.
func (o *OverpassClient) FetchFacilities(ctx context.Context, c models.Coordinate, radius int) ([]models.RawFacilityRecord, error) {
	data, err := o.query(ctx, "opendata", BuildFacilityQuery(c, radius))
	if err != nil {
		return nil, err
	}

	records := make([]models.RawFacilityRecord, 0, len(data.Elements))
	for _, el := range data.Elements {
		tags := toOSMTags(el.Tags)
		records = append(records, models.RawFacilityRecord{
			ExternalID: el.ID,
			Type:       osm.Type(el.Type),
			Name:       tags.Find("name"),
			Lat:        el.Lat,
			Lon:        el.Lon,
			Center:     el.Center,
			Tags:       tags,
		})
	}

	return records, nil
}

// FetchWaterways returns the water features around c. Elements without an
// inline geometry of at least two points are skipped.
func (o *OverpassClient) FetchWaterways(ctx context.Context, c models.Coordinate, radius int) ([]models.Waterway, error) {
	if radius <= 0 {
		radius = DefaultWaterwayRadius
	}
	data, err := o.query(ctx, "waterways", BuildWaterwayQuery(c, radius))
	if err != nil {
		o.metrics.SourceRequests.WithLabelValues("waterways", "error").Inc()
		return nil, err
	}

	out := make([]models.Waterway, 0, len(data.Elements))
	for _, el := range data.Elements {
		if len(el.Geometry) < 2 {
			continue
		}
		line := make(orb.LineString, 0, len(el.Geometry))
		for _, p := range el.Geometry {
			line = append(line, p.Point())
		}
		out = append(out, models.Waterway{ID: el.ID, Kind: waterKind(el.Tags), Line: line})
	}
	o.metrics.SourceRequests.WithLabelValues("waterways", outcome(len(out))).Inc()
	return out, nil
}

func waterKind(tags map[string]string) string {
	for _, key := range []string{"waterway", "natural", "landuse"} {
		if v := tags[key]; v != "" {
			return v
		}
	}
	return ""
}

func (o *OverpassClient) query(ctx context.Context, source, q string) (*overpassResponse, error) {
	form := url.Values{"data": {q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", o.userAgent)

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	o.metrics.SourceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass error: status %d: %s", resp.StatusCode, body)
	}

	var data overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	return &data, nil
}

func toOSMTags(m map[string]string) osm.Tags {
	tags := make(osm.Tags, 0, len(m))
	for k, v := range m {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	return tags
}
