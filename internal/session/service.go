package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/prediction"
)

var (
	ErrFacilityNotFound = errors.New("facility not found in current set")
	ErrNoLocation       = errors.New("session has no location yet")
)

type Geocoder interface {
	Search(ctx context.Context, query string) (models.Coordinate, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, c models.Coordinate, radius int) models.FacilitySet
}

type Predictor interface {
	Predict(ctx context.Context, q prediction.Query) (models.PredictionResult, error)
}

// Service drives the session flows: location changes, facility cycles,
// detail lookups and predictions.
type Service struct {
	geocoder   Geocoder
	aggregator Aggregator
	predictor  Predictor
	evaluator  *alerts.Evaluator
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewService(geocoder Geocoder, aggregator Aggregator, predictor Predictor, evaluator *alerts.Evaluator, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		geocoder:   geocoder,
		aggregator: aggregator,
		predictor:  predictor,
		evaluator:  evaluator,
		metrics:    metrics,
		logger:     logger,
	}
}

// SelectCity resolves city and, on success, makes it the session's user
// selection and loads its facilities. On a geocode failure the previous
// location is kept and the error is returned. A pick overtaken by a later
// pick or location fix while geocoding is dropped with applied false.
func (svc *Service) SelectCity(ctx context.Context, s *Session, city string) (applied bool, err error) {
	pick := s.BeginPick()

	c, err := svc.geocoder.Search(ctx, city)
	if err != nil {
		svc.logger.Warn("geocode failed, keeping previous location", "session", s.ID, "city", city, "error", err)
		return false, fmt.Errorf("geocode %q: %w", city, err)
	}

	gen, ok := s.SelectCity(pick, city, c)
	if !ok {
		svc.metrics.StaleDiscarded.Inc()
		svc.logger.Debug("discarded superseded city pick", "session", s.ID, "city", city)
		return false, nil
	}
	return svc.refresh(ctx, s, gen, c), nil
}

// UpdateLocation applies an automatic position fix. It reports whether the
// fix changed the selection and whether its facility cycle was kept.
func (svc *Service) UpdateLocation(ctx context.Context, s *Session, c models.Coordinate, override bool) (accepted, applied bool) {
	gen, ok := s.UpdateLocation(c, override)
	if !ok {
		svc.logger.Debug("location fix ignored for user selection", "session", s.ID)
		return false, false
	}
	return true, svc.refresh(ctx, s, gen, c)
}

func (svc *Service) refresh(ctx context.Context, s *Session, gen uint64, c models.Coordinate) bool {
	set := svc.aggregator.Aggregate(ctx, c, 0)
	if !s.ApplyFacilities(gen, set) {
		svc.metrics.StaleDiscarded.Inc()
		svc.logger.Debug("discarded stale facility cycle", "session", s.ID, "generation", gen)
		return false
	}
	return true
}

// Details enriches one facility of the session's current set.
func (svc *Service) Details(ctx context.Context, s *Session, facilityID string) (models.FacilityDetail, error) {
	f, ok := s.FindFacility(facilityID)
	if !ok {
		return models.FacilityDetail{}, ErrFacilityNotFound
	}
	return s.Enricher().Enrich(ctx, f), nil
}

// Predict fetches the risk for the session's location and evaluates it. The
// session's notification preference selects the live stream and push sinks.
func (svc *Service) Predict(ctx context.Context, s *Session) (models.PredictionResult, []models.Alert, error) {
	city, c, ok := s.Location()
	if !ok {
		return models.PredictionResult{}, nil, ErrNoLocation
	}

	q := prediction.Query{City: city}
	if city == "" {
		q.Coordinate = &c
	}

	res, err := svc.predictor.Predict(ctx, q)
	if err != nil {
		svc.logger.Error("prediction failed", "session", s.ID, "city", city, "error", err)
		return models.PredictionResult{}, nil, fmt.Errorf("predict: %w", err)
	}

	label := city
	if label == "" {
		label = res.City
	}
	if label == "" {
		label = c.String()
	}

	emitted := svc.evaluator.Evaluate(ctx, label, res, alerts.Delivery{
		History: s.History(),
		Native:  s.Notifications,
		Push:    s.Notifications,
	})
	return res, emitted, nil
}
