package sources

import (
	"context"
	"log/slog"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/sourcegraph/conc"
)

// OpenDataSource returns raw facility records around a coordinate.
type OpenDataSource interface {
	FetchFacilities(ctx context.Context, c models.Coordinate, radius int) ([]models.RawFacilityRecord, error)
}

// FetchResult holds the outcome of both branches. A failed branch leaves its
// slice empty and records the error.
type FetchResult struct {
	Records     []models.RawFacilityRecord
	Places      []models.PlacesResult
	OpenDataErr error
	PlacesErr   error
}

// Fetcher queries the open-data and places sources concurrently.
type Fetcher struct {
	openData OpenDataSource
	places   PlacesSource
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewFetcher creates a fetcher. places may be nil when no places provider is
// configured; that branch then always yields an empty set.
func NewFetcher(openData OpenDataSource, places PlacesSource, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		openData: openData,
		places:   places,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Fetch blocks until both branches settle. It never fails as a whole.
func (f *Fetcher) Fetch(ctx context.Context, c models.Coordinate, radius int) FetchResult {
	var res FetchResult
	var wg conc.WaitGroup

	wg.Go(func() {
		bctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		records, err := f.openData.FetchFacilities(bctx, c, radius)
		if err != nil {
			f.metrics.SourceRequests.WithLabelValues("opendata", "error").Inc()
			f.logger.Warn("open-data fetch failed", "coord", c.String(), "error", err)
			res.OpenDataErr = err
			return
		}
		f.metrics.SourceRequests.WithLabelValues("opendata", outcome(len(records))).Inc()
		res.Records = records
	})

	wg.Go(func() {
		if f.places == nil {
			return
		}
		bctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()

		places, err := f.places.NearbyNGOs(bctx, c)
		if err != nil {
			f.metrics.SourceRequests.WithLabelValues("places", "error").Inc()
			f.logger.Warn("places fetch failed", "coord", c.String(), "error", err)
			res.PlacesErr = err
			return
		}
		f.metrics.SourceRequests.WithLabelValues("places", outcome(len(places))).Inc()
		res.Places = places
	})

	wg.Wait()
	return res
}

func outcome(n int) string {
	if n == 0 {
		return "empty"
	}
	return "success"
}
