package facility

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/sources"
	"github.com/paulmach/osm"
	"github.com/sourcegraph/conc/pool"
)

// ContactSource looks up the extra tags of an open-data object.
type ContactSource interface {
	ExtraTags(ctx context.Context, osmType osm.Type, osmID int64) (map[string]string, error)
}

// Enricher attaches contact details to merged facilities on demand.
type Enricher struct {
	places      sources.PlacesSource
	contacts    ContactSource
	cache       *DetailCache
	timeout     time.Duration
	concurrency int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

type EnricherConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// NewEnricher creates an enricher over cache. places and contacts may be nil.
func NewEnricher(places sources.PlacesSource, contacts ContactSource, cache *DetailCache, cfg EnricherConfig, metrics *observability.Metrics, logger *slog.Logger) *Enricher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Enricher{
		places:      places,
		contacts:    contacts,
		cache:       cache,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		metrics:     metrics,
		logger:      logger,
	}
}

func (e *Enricher) Cache() *DetailCache {
	return e.cache
}

// SearchLink is the generic map-search link for a facility name.
func SearchLink(name string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(name)
}

// PlaceLink links straight to a place by id.
func PlaceLink(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(placeID)
}

// FallbackDetail is the detail shown when nothing could be resolved.
func FallbackDetail(name string) models.FacilityDetail {
	return models.FacilityDetail{
		Phone:   models.NotAvailable,
		Website: models.NotAvailable,
		Address: models.NotAvailable,
		Email:   models.NotAvailable,
		MapLink: SearchLink(name),
	}
}

// Enrich returns the detail record for f. It never fails; lookups that go
// wrong degrade to FallbackDetail.
func (e *Enricher) Enrich(ctx context.Context, f models.MergedFacility) models.FacilityDetail {
	key := CacheKey(f)
	entry, _ := e.cache.Get(key)
	if entry.Detail != nil {
		e.metrics.DetailCache.WithLabelValues("hit").Inc()
		return *entry.Detail
	}
	e.metrics.DetailCache.WithLabelValues("miss").Inc()

	placeID := f.PlaceID
	if placeID == "" && e.places != nil {
		if !entry.PlaceResolved {
			entry.PlaceID = e.resolvePlaceID(ctx, f)
			entry.PlaceResolved = true
			e.cache.Put(key, entry)
		}
		placeID = entry.PlaceID
	}

	if placeID != "" {
		d, ok := e.placeDetail(ctx, placeID)
		if !ok {
			return FallbackDetail(f.DisplayName())
		}
		entry.Detail = &d
		e.cache.Put(key, entry)
		return d
	}

	d, ok := e.openDataDetail(ctx, f)
	if ok {
		entry.Detail = &d
		e.cache.Put(key, entry)
	}
	return d
}

// EnrichAll enriches fs with bounded concurrency. Results align with fs.
func (e *Enricher) EnrichAll(ctx context.Context, fs []models.MergedFacility) []models.FacilityDetail {
	out := make([]models.FacilityDetail, len(fs))
	p := pool.New().WithMaxGoroutines(e.concurrency)
	for i, f := range fs {
		p.Go(func() {
			out[i] = e.Enrich(ctx, f)
		})
	}
	p.Wait()
	return out
}

func (e *Enricher) resolvePlaceID(ctx context.Context, f models.MergedFacility) string {
	if f.Name == "" {
		return ""
	}
	cctx, cancel := e.callContext(ctx)
	defer cancel()

	id, err := e.places.SearchText(cctx, f.Name, f.Coordinate())
	if err != nil {
		e.metrics.SourceRequests.WithLabelValues("search", "error").Inc()
		e.logger.Warn("place id lookup failed", "name", f.Name, "error", err)
		return ""
	}
	e.metrics.SourceRequests.WithLabelValues("search", outcomeOf(id != "")).Inc()
	return id
}

func (e *Enricher) placeDetail(ctx context.Context, placeID string) (models.FacilityDetail, bool) {
	if e.places == nil {
		return models.FacilityDetail{}, false
	}
	cctx, cancel := e.callContext(ctx)
	defer cancel()

	raw, err := e.places.Details(cctx, placeID)
	if err != nil {
		e.metrics.SourceRequests.WithLabelValues("details", "error").Inc()
		e.logger.Warn("place details lookup failed", "place_id", placeID, "error", err)
		return models.FacilityDetail{}, false
	}
	e.metrics.SourceRequests.WithLabelValues("details", "success").Inc()

	link := PlaceLink(placeID)
	return models.FacilityDetail{
		Phone:   phoneFields.Or(raw, models.NotAvailable),
		Website: websiteFields.Or(raw, link),
		Address: addressFields.Or(raw, models.NotAvailable),
		Email:   models.NotAvailable,
		MapLink: link,
	}, true
}

func (e *Enricher) openDataDetail(ctx context.Context, f models.MergedFacility) (models.FacilityDetail, bool) {
	d := FallbackDetail(f.DisplayName())
	if e.contacts == nil || f.OSMID == 0 {
		return d, true
	}

	cctx, cancel := e.callContext(ctx)
	defer cancel()

	tags, err := e.contacts.ExtraTags(cctx, f.OSMType, f.OSMID)
	if err != nil {
		e.logger.Warn("open-data contact lookup failed", "osm_id", f.OSMID, "error", err)
		return d, false
	}

	if v, ok := osmPhoneTags.ResolveTags(tags); ok {
		d.Phone = v
	}
	if v, ok := osmWebsiteTags.ResolveTags(tags); ok {
		d.Website = v
	}
	if v, ok := osmEmailTags.ResolveTags(tags); ok {
		d.Email = v
	}
	return d, true
}

func (e *Enricher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func outcomeOf(found bool) string {
	if found {
		return "success"
	}
	return "empty"
}
