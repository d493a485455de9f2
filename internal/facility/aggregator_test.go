package facility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr1hm/earthpulse/internal/logging"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOpenData struct {
	records []models.RawFacilityRecord
	err     error
	radius  int
}

func (s *stubOpenData) FetchFacilities(_ context.Context, _ models.Coordinate, radius int) ([]models.RawFacilityRecord, error) {
	s.radius = radius
	return s.records, s.err
}

type stubPlaces struct {
	countingPlaces
	nearby []models.PlacesResult
	err    error
}

func (s *stubPlaces) NearbyNGOs(context.Context, models.Coordinate) ([]models.PlacesResult, error) {
	return s.nearby, s.err
}

func newTestAggregator(od sources.OpenDataSource, pl sources.PlacesSource) *Aggregator {
	metrics := observability.NewMetricsForTesting()
	fetcher := sources.NewFetcher(od, pl, time.Second, metrics, logging.Discard())
	return NewAggregator(fetcher, 10000, metrics, logging.Discard())
}

func TestAggregate_MergesAndClassifies(t *testing.T) {
	od := &stubOpenData{records: []models.RawFacilityRecord{
		record(1, "Goonj", "office", "ngo"),
		record(2, "AIIMS", "amenity", "hospital"),
		record(3, "Chai Point", "amenity", "cafe"),
	}}
	pl := &stubPlaces{nearby: []models.PlacesResult{{PlaceID: "p1", Name: "goonj", Lat: 1, Lon: 1}}}
	a := newTestAggregator(od, pl)

	set := a.Aggregate(context.Background(), models.Coordinate{Lat: 28.6, Lon: 77.2}, 0)

	assert.Equal(t, 10000, od.radius)
	require.Len(t, set.NGOs, 1)
	assert.Equal(t, "p1", set.NGOs[0].PlaceID)
	assert.Len(t, set.Categories[models.CategoryHospital], 1)
	assert.NotContains(t, set.Categories, models.CategoryNGO)
	assert.Len(t, set.Other, 1)
}

func TestAggregate_OpenDataFailureKeepsPlaces(t *testing.T) {
	od := &stubOpenData{err: errors.New("overpass 504")}
	pl := &stubPlaces{nearby: []models.PlacesResult{{PlaceID: "p1", Name: "A"}}}
	a := newTestAggregator(od, pl)

	set := a.Aggregate(context.Background(), models.Coordinate{}, 5000)

	assert.Equal(t, 5000, od.radius)
	assert.Len(t, set.NGOs, 1)
	assert.Empty(t, set.Categories[models.CategoryPolice])
}

func TestAggregate_PlacesFailureKeepsOpenData(t *testing.T) {
	od := &stubOpenData{records: []models.RawFacilityRecord{record(1, "Seva", "amenity", "ngo")}}
	pl := &stubPlaces{err: errors.New("quota")}
	a := newTestAggregator(od, pl)

	set := a.Aggregate(context.Background(), models.Coordinate{}, 0)

	require.Len(t, set.NGOs, 1)
	assert.Equal(t, models.OriginOpenData, set.NGOs[0].Origin)
}
