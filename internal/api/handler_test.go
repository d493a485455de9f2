package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/facility"
	"github.com/mr1hm/earthpulse/internal/geocode"
	"github.com/mr1hm/earthpulse/internal/logging"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/prediction"
	"github.com/mr1hm/earthpulse/internal/repository"
	"github.com/mr1hm/earthpulse/internal/session"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Search(_ context.Context, q string) (models.Coordinate, error) {
	switch q {
	case "Pune":
		return models.Coordinate{Lat: 18.52, Lon: 73.85}, nil
	case "Delhi":
		return models.Coordinate{Lat: 28.61, Lon: 77.21}, nil
	case "Broken":
		return models.Coordinate{}, errors.New("upstream 503")
	default:
		return models.Coordinate{}, geocode.ErrNoMatch
	}
}

type fakeAggregator struct {
	lastRadius int
}

func (a *fakeAggregator) Aggregate(_ context.Context, c models.Coordinate, radius int) models.FacilitySet {
	a.lastRadius = radius
	return models.FacilitySet{
		Center: c,
		NGOs: []models.MergedFacility{
			{ID: "p1", Name: "Goonj", Lat: c.Lat + 0.01, Lon: c.Lon, PlaceID: "p1", Origin: models.OriginPlaces},
		},
		Categories: map[models.Category][]models.ClassifiedFacility{
			models.CategoryHospital: {{ID: 42, OSMType: "node", Name: "City Hospital", Lat: c.Lat, Lon: c.Lon + 0.01, Category: models.CategoryHospital}},
		},
		Other: []models.ClassifiedFacility{{ID: 77, OSMType: "way", Name: "Community Hall", Lat: c.Lat - 0.01, Lon: c.Lon}},
	}
}

type fakePredictor struct {
	res models.PredictionResult
	err error
}

func (p *fakePredictor) Predict(context.Context, prediction.Query) (models.PredictionResult, error) {
	return p.res, p.err
}

type fakePlaces struct{}

func (fakePlaces) NearbyNGOs(_ context.Context, c models.Coordinate) ([]models.PlacesResult, error) {
	return []models.PlacesResult{{PlaceID: "abc", Name: "Relief Org", Lat: c.Lat, Lon: c.Lon}}, nil
}

func (fakePlaces) SearchText(_ context.Context, name string, _ models.Coordinate) (string, error) {
	if name == "Relief Org" {
		return "abc", nil
	}
	return "", nil
}

func (fakePlaces) Details(_ context.Context, id string) (map[string]any, error) {
	return map[string]any{"formatted_phone_number": "012 345", "website": "https://relief.org"}, nil
}

type fakeWaterways struct{}

func (fakeWaterways) FetchWaterways(_ context.Context, c models.Coordinate, _ int) ([]models.Waterway, error) {
	return []models.Waterway{{ID: 5, Kind: "river", Line: orb.LineString{{c.Lon, c.Lat}, {c.Lon + 0.1, c.Lat}}}}, nil
}

type fakeHotspots struct {
	err error
}

func (f *fakeHotspots) Hotspots(_ context.Context, c models.Coordinate, _ float64) ([]models.Hotspot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Hotspot{{Lat: c.Lat, Lon: c.Lon, Confidence: "h"}}, nil
}

type testEnv struct {
	router      *gin.Engine
	broadcaster *alerts.Broadcaster
	predictor   *fakePredictor
	aggregator  *fakeAggregator
	hotspots    *fakeHotspots
	db          *repository.SQLiteDB
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	metrics := observability.NewMetricsForTesting()
	logger := logging.Discard()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	places := fakePlaces{}

	broadcaster := alerts.NewBroadcaster()
	evaluator := alerts.NewEvaluator(clock, broadcaster, nil, db, metrics, logger)
	predictor := &fakePredictor{}
	aggregator := &fakeAggregator{}
	hotspots := &fakeHotspots{}

	store := session.NewStore(clock, 5, func(cache *facility.DetailCache) *facility.Enricher {
		return facility.NewEnricher(places, nil, cache, facility.EnricherConfig{Timeout: time.Second, Concurrency: 1}, metrics, logger)
	}, metrics)
	service := session.NewService(fakeGeocoder{}, aggregator, predictor, evaluator, metrics, logger)

	router := gin.New()
	NewHandler(Options{
		Sessions:      store,
		Service:       service,
		Geocoder:      fakeGeocoder{},
		Aggregator:    aggregator,
		Broadcaster:   broadcaster,
		Subscriptions: db,
		AlertLog:      db,
		Places:        places,
		Waterways:     fakeWaterways{},
		Hotspots:      hotspots,
		Logger:        logger,
	}).RegisterRoutes(router)

	return &testEnv{router: router, broadcaster: broadcaster, predictor: predictor, aggregator: aggregator, hotspots: hotspots, db: db}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) newSession(t *testing.T, body string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/sessions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	return snap.ID
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		ID       string `json:"id"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func decodeFC(t *testing.T, w *httptest.ResponseRecorder) featureCollection {
	t.Helper()
	var fc featureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode geojson: %v", err)
	}
	return fc
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestGeocode(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		query string
		want  int
	}{
		{"Pune", http.StatusOK},
		{"Atlantis", http.StatusNotFound},
		{"Broken", http.StatusBadGateway},
		{"", http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := env.do(http.MethodGet, "/api/geocode?q="+tt.query, "")
		if w.Code != tt.want {
			t.Errorf("q=%q: expected %d, got %d", tt.query, tt.want, w.Code)
		}
	}
}

func TestFacilities_GeoJSON(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/facilities?lat=18.52&lon=73.85&radius=5000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected geo+json content type, got %s", ct)
	}
	if env.aggregator.lastRadius != 5000 {
		t.Errorf("expected radius 5000, got %d", env.aggregator.lastRadius)
	}

	fc := decodeFC(t, w)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %+v", fc)
	}

	ngo := fc.Features[0]
	if ngo.Properties["category"] != "ngo" || ngo.Properties["source_origin"] != "places" {
		t.Errorf("unexpected ngo properties %v", ngo.Properties)
	}
	if ngo.Geometry.Coordinates[0] != 73.85 {
		t.Errorf("expected lon first in coordinates, got %v", ngo.Geometry.Coordinates)
	}
	if d, _ := ngo.Properties["distance_m"].(float64); d < 1000 || d > 1200 {
		t.Errorf("expected roughly 1.1km distance, got %v", ngo.Properties["distance_m"])
	}
	if fc.Features[1].ID != "osm:node:42" {
		t.Errorf("expected hospital feature id, got %s", fc.Features[1].ID)
	}
	other := fc.Features[2]
	if other.ID != "osm:way:77" || other.Properties["category"] != "other" {
		t.Errorf("expected unclassified record as other feature, got %s %v", other.ID, other.Properties)
	}
}

func TestFacilities_BadParams(t *testing.T) {
	env := setupTestEnv(t)

	for _, q := range []string{"", "lat=abc&lon=1", "lat=95&lon=1", "lat=1&lon=1&radius=10"} {
		w := env.do(http.MethodGet, "/api/facilities?"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", q, w.Code)
		}
	}
}

func TestSession_CityFlow(t *testing.T) {
	env := setupTestEnv(t)
	id := env.newSession(t, "")

	w := env.do(http.MethodGet, "/api/sessions/"+id+"/facilities", "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 before selection, got %d", w.Code)
	}

	w = env.do(http.MethodPost, "/api/sessions/"+id+"/city", `{"city":"Pune"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodPost, "/api/sessions/"+id+"/location", `{"lat":28.61,"lon":77.21}`)
	var loc struct {
		Accepted bool             `json:"accepted"`
		Session  session.Snapshot `json:"session"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &loc)
	if loc.Accepted || loc.Session.City != "Pune" {
		t.Errorf("expected location fix to be ignored, got %+v", loc)
	}

	w = env.do(http.MethodPost, "/api/sessions/"+id+"/location", `{"lat":28.61,"lon":77.21,"override":true}`)
	_ = json.Unmarshal(w.Body.Bytes(), &loc)
	if !loc.Accepted || loc.Session.Selection != session.SelectionAuto {
		t.Errorf("expected override to switch to auto, got %+v", loc)
	}

	w = env.do(http.MethodGet, "/api/sessions/"+id+"/facilities", "")
	if fc := decodeFC(t, w); len(fc.Features) != 3 {
		t.Errorf("expected 3 features, got %d", len(fc.Features))
	}
}

func TestSession_UnknownCityKeepsLocation(t *testing.T) {
	env := setupTestEnv(t)
	id := env.newSession(t, "")

	env.do(http.MethodPost, "/api/sessions/"+id+"/city", `{"city":"Pune"}`)
	w := env.do(http.MethodPost, "/api/sessions/"+id+"/city", `{"city":"Atlantis"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}

	var body struct {
		Session session.Snapshot `json:"session"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Session.City != "Pune" {
		t.Errorf("expected previous city to be kept, got %q", body.Session.City)
	}
}

func TestSession_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/sessions/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSession_Layers(t *testing.T) {
	env := setupTestEnv(t)
	id := env.newSession(t, "")
	env.do(http.MethodPost, "/api/sessions/"+id+"/city", `{"city":"Pune"}`)

	w := env.do(http.MethodPut, "/api/sessions/"+id+"/layers", `{"layers":{"hospital":false}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	fc := decodeFC(t, env.do(http.MethodGet, "/api/sessions/"+id+"/facilities", ""))
	if len(fc.Features) != 2 {
		t.Errorf("expected hospital layer hidden, got %d features", len(fc.Features))
	}

	env.do(http.MethodPut, "/api/sessions/"+id+"/layers", `{"layers":{"other":false}}`)
	fc = decodeFC(t, env.do(http.MethodGet, "/api/sessions/"+id+"/facilities", ""))
	if len(fc.Features) != 1 {
		t.Errorf("expected other layer hidden, got %d features", len(fc.Features))
	}

	w = env.do(http.MethodPut, "/api/sessions/"+id+"/layers", `{"layers":{"bakery":true}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown layer, got %d", w.Code)
	}

	env.do(http.MethodPut, "/api/sessions/"+id+"/layers", `{"all":false}`)
	fc = decodeFC(t, env.do(http.MethodGet, "/api/sessions/"+id+"/facilities", ""))
	if len(fc.Features) != 0 {
		t.Errorf("expected all layers hidden, got %d features", len(fc.Features))
	}
}

func TestSession_DetailsAndCacheReset(t *testing.T) {
	env := setupTestEnv(t)
	id := env.newSession(t, "")
	env.do(http.MethodPost, "/api/sessions/"+id+"/city", `{"city":"Pune"}`)

	w := env.do(http.MethodGet, "/api/sessions/"+id+"/facilities/p1/details", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var d models.FacilityDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Phone != "012 345" || d.Website != "https://relief.org" || d.Address != models.NotAvailable {
		t.Errorf("unexpected detail %+v", d)
	}

	w = env.do(http.MethodGet, "/api/sessions/"+id+"/facilities/missing/details", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = env.do(http.MethodDelete, "/api/sessions/"+id+"/cache", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}

	var snap session.Snapshot
	_ = json.Unmarshal(env.do(http.MethodGet, "/api/sessions/"+id, "").Body.Bytes(), &snap)
	if snap.CachedDetails != 0 {
		t.Errorf("expected empty cache, got %d", snap.CachedDetails)
	}
}

func TestSession_PredictAndAlerts(t *testing.T) {
	env := setupTestEnv(t)
	id := env.newSession(t, `{"notifications":true}`)

	w := env.do(http.MethodPost, "/api/sessions/"+id+"/predict", "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 without a location, got %d", w.Code)
	}

	env.do(http.MethodPost, "/api/sessions/"+id+"/city", `{"city":"Pune"}`)
	env.predictor.res = models.PredictionResult{
		Flood:    models.HazardRisk{Probability: 0.85},
		Wildfire: models.HazardRisk{Probability: 0.45},
	}

	w = env.do(http.MethodPost, "/api/sessions/"+id+"/predict", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res struct {
		Alerts []models.Alert `json:"alerts"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Alerts) != 2 || res.Alerts[0].Title != "Pune: HIGH Flood Risk" {
		t.Errorf("unexpected alerts %+v", res.Alerts)
	}

	w = env.do(http.MethodGet, "/api/sessions/"+id+"/alerts", "")
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Alerts) != 2 || res.Alerts[0].Hazard != models.HazardWildfire {
		t.Errorf("expected newest-first history, got %+v", res.Alerts)
	}

	w = env.do(http.MethodGet, "/api/alerts/log?city=Pune&tier=high", "")
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Alerts) != 1 || res.Alerts[0].Tier != models.AlertTierHigh {
		t.Errorf("expected one logged HIGH alert, got %+v", res.Alerts)
	}

	env.predictor.err = errors.New("backend down")
	w = env.do(http.MethodPost, "/api/sessions/"+id+"/predict", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestAlertLog_BadFilters(t *testing.T) {
	env := setupTestEnv(t)

	for _, q := range []string{"hazard=quake", "tier=low"} {
		w := env.do(http.MethodGet, "/api/alerts/log?"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestPushSubscribe(t *testing.T) {
	env := setupTestEnv(t)

	sub := `{"subscription":{"endpoint":"https://push.example/1","keys":{"auth":"x"}}}`
	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/api/push/subscribe", sub)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	n, err := env.db.CountSubscriptions(context.Background())
	if err != nil || n != 1 {
		t.Errorf("expected 1 subscription, got %d (%v)", n, err)
	}

	for _, body := range []string{`{}`, `{"subscription":null}`, `{"subscription":{"keys":{}}}`} {
		w := env.do(http.MethodPost, "/api/push/subscribe", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestAlertStream(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/stream", nil)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for env.broadcaster.StreamCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = env.broadcaster.Notify(context.Background(), models.Alert{ID: "a1", Title: "Pune: Flood Watch"})
	env.broadcaster.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after close")
	}

	body := w.Body.String()
	if !strings.Contains(body, "event:alert") || !strings.Contains(body, "Pune: Flood Watch") {
		t.Errorf("unexpected stream body %q", body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected event-stream content type, got %s", ct)
	}
}

func TestGoogleRoutes(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/google/nearby_ngos?lat=1&lon=2", "")
	var nearby struct {
		Results []nearbyPlace `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &nearby)
	if len(nearby.Results) != 1 || nearby.Results[0].Geometry.Location.Lng != 2 {
		t.Errorf("unexpected nearby response %s", w.Body.String())
	}

	w = env.do(http.MethodGet, "/google/search?name=Relief+Org&lat=1&lon=2", "")
	if !bytes.Contains(w.Body.Bytes(), []byte(`"place_id":"abc"`)) {
		t.Errorf("unexpected search response %s", w.Body.String())
	}

	w = env.do(http.MethodGet, "/google/details?place_id=abc", "")
	if !bytes.Contains(w.Body.Bytes(), []byte(`"result"`)) {
		t.Errorf("unexpected details response %s", w.Body.String())
	}

	w = env.do(http.MethodGet, "/google/details", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes[w.Code]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Errorf("expected some requests to be limited, got %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected a different client to be allowed, got %d", w.Code)
	}
}

func TestWaterways(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/waterways?lat=18.52&lon=73.85", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var fc struct {
		Features []struct {
			Geometry struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode geojson: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Geometry.Type != "LineString" {
		t.Fatalf("expected one line feature, got %s", w.Body.String())
	}
	if fc.Features[0].Properties["type"] != "river" || len(fc.Features[0].Geometry.Coordinates) != 2 {
		t.Errorf("unexpected waterway feature %s", w.Body.String())
	}

	if w := env.do(http.MethodGet, "/api/waterways", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without coordinates, got %d", w.Code)
	}
}

func TestFloodZones(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/flood_zones?lat=18.5&lon=73.8", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var fc struct {
		Features []struct {
			Geometry struct {
				Type        string        `json:"type"`
				Coordinates [][][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode geojson: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Geometry.Type != "Polygon" {
		t.Fatalf("expected one polygon, got %s", w.Body.String())
	}

	ring := fc.Features[0].Geometry.Coordinates[0]
	if len(ring) != 5 || ring[0][0] != ring[4][0] || ring[0][1] != ring[4][1] {
		t.Fatalf("expected a closed 5-point ring, got %v", ring)
	}
	if math.Abs(ring[0][0]-73.73) > 1e-9 || math.Abs(ring[2][1]-18.57) > 1e-9 {
		t.Errorf("expected a 0.07 degree square around the center, got %v", ring)
	}
	if fc.Features[0].Properties["severity"] != 0.7 {
		t.Errorf("unexpected properties %v", fc.Features[0].Properties)
	}

	if w := env.do(http.MethodGet, "/api/flood_zones?lat=x&lon=1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHotspots(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/hotspots?lat=18.5&lon=73.8&radius_km=50", "")
	var list []models.Hotspot
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list) != 1 || list[0].Confidence != "h" {
		t.Errorf("unexpected hotspots response %d %s", w.Code, w.Body.String())
	}

	if w := env.do(http.MethodGet, "/api/hotspots?lat=18.5&lon=73.8&radius_km=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative radius, got %d", w.Code)
	}

	env.hotspots.err = errors.New("feed down")
	w = env.do(http.MethodGet, "/api/hotspots?lat=18.5&lon=73.8", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty list on feed failure, got %d %s", w.Code, w.Body.String())
	}
}
