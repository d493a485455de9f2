package facility

import (
	"context"
	"log/slog"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/sources"
)

// Aggregator runs one fetch, classify and merge cycle for a coordinate.
type Aggregator struct {
	fetcher *sources.Fetcher
	radius  int
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewAggregator(fetcher *sources.Fetcher, radius int, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		radius:  radius,
		metrics: metrics,
		logger:  logger,
	}
}

func (a *Aggregator) Radius() int {
	return a.radius
}

// Aggregate waits for both sources and builds the facility set. A source that
// failed contributes nothing. radius <= 0 uses the configured default.
func (a *Aggregator) Aggregate(ctx context.Context, c models.Coordinate, radius int) models.FacilitySet {
	if radius <= 0 {
		radius = a.radius
	}

	res := a.fetcher.Fetch(ctx, c, radius)
	classified := Classify(res.Records)

	ngos, dropped := Merge(res.Places, classified.ByCategory[models.CategoryNGO])
	a.metrics.FacilitiesMerged.Observe(float64(len(ngos)))
	a.metrics.DuplicatesDropped.Add(float64(dropped))

	categories := make(map[models.Category][]models.ClassifiedFacility, len(classified.ByCategory)-1)
	for cat, list := range classified.ByCategory {
		if cat == models.CategoryNGO {
			continue
		}
		categories[cat] = list
	}

	a.logger.Debug("facilities aggregated",
		"coord", c.String(),
		"records", len(res.Records),
		"places", len(res.Places),
		"ngos", len(ngos),
		"duplicates", dropped,
	)

	return models.FacilitySet{
		Center:     c,
		NGOs:       ngos,
		Categories: categories,
		Other:      classified.Other,
	}
}
