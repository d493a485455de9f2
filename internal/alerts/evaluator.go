// Package alerts turns risk predictions into tiered alerts and delivers them
// to the in-app history, live notification streams and the push relay.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/sourcegraph/conc"
)

const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// Notifier delivers one alert to an outside sink.
type Notifier interface {
	Notify(ctx context.Context, a models.Alert) error
}

// Recorder persists emitted alerts.
type Recorder interface {
	RecordAlert(ctx context.Context, a models.Alert) error
}

// Delivery selects the sinks used for one evaluation. History may be nil.
// When Allow is set, alerts it rejects are dropped before any side effect.
type Delivery struct {
	History *History
	Native  bool
	Push    bool
	Allow   func(models.Alert) bool
}

type Evaluator struct {
	clock    clockwork.Clock
	native   Notifier
	push     Notifier
	recorder Recorder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator. native, push and recorder may be nil.
func NewEvaluator(clock clockwork.Clock, native, push Notifier, recorder Recorder, metrics *observability.Metrics, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		clock:    clock,
		native:   native,
		push:     push,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
	}
}

// TierFor maps a probability to an alert tier. ok is false below the medium
// threshold.
func TierFor(p float64) (models.AlertTier, bool) {
	switch {
	case p >= HighThreshold:
		return models.AlertTierHigh, true
	case p >= MediumThreshold:
		return models.AlertTierMedium, true
	default:
		return "", false
	}
}

// Tag groups alerts for the same city and hazard within one wall-clock minute.
func Tag(city string, h models.Hazard, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", city, h, at.Unix()/60)
}

// Assess builds the alerts warranted by p without delivering them. Flood is
// always assessed before wildfire.
func Assess(city string, p models.PredictionResult, at time.Time) []models.Alert {
	var out []models.Alert
	for _, h := range []models.Hazard{models.HazardFlood, models.HazardWildfire} {
		prob := p.Risk(h).Probability
		tier, ok := TierFor(prob)
		if !ok {
			continue
		}
		out = append(out, models.Alert{
			ID:          uuid.NewString(),
			City:        city,
			Hazard:      h,
			Tier:        tier,
			Probability: prob,
			Title:       title(city, h, tier),
			Body:        body(city, h, tier, prob),
			Tag:         Tag(city, h, at),
			CreatedAt:   at,
		})
	}
	return out
}

// Evaluate assesses p and runs the side effects selected by d. Delivery
// failures are logged and counted; the emitted alerts are always returned.
func (e *Evaluator) Evaluate(ctx context.Context, city string, p models.PredictionResult, d Delivery) []models.Alert {
	if city == "" {
		city = p.City
	}
	assessed := Assess(city, p, e.clock.Now())
	emitted := assessed[:0]

	for _, a := range assessed {
		if d.Allow != nil && !d.Allow(a) {
			continue
		}
		emitted = append(emitted, a)

		e.metrics.AlertsEmitted.WithLabelValues(string(a.Hazard), string(a.Tier)).Inc()
		if d.History != nil {
			d.History.Add(a)
		}

		var wg conc.WaitGroup
		if d.Native && e.native != nil {
			wg.Go(func() { e.deliver(ctx, "native", e.native, a) })
		}
		if d.Push && e.push != nil {
			wg.Go(func() { e.deliver(ctx, "push", e.push, a) })
		}
		wg.Wait()

		if e.recorder != nil {
			if err := e.recorder.RecordAlert(ctx, a); err != nil {
				e.metrics.NotificationFailures.WithLabelValues("log").Inc()
				e.logger.Warn("failed to record alert", "tag", a.Tag, "error", err)
			}
		}

		e.logger.Info("alert emitted",
			"city", a.City,
			"hazard", a.Hazard,
			"tier", a.Tier,
			"probability", a.Probability,
		)
	}

	return emitted
}

func (e *Evaluator) deliver(ctx context.Context, sink string, n Notifier, a models.Alert) {
	err := n.Notify(ctx, a)
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoSubscription) {
		e.logger.Debug("push skipped", "tag", a.Tag)
		return
	}
	e.metrics.NotificationFailures.WithLabelValues(sink).Inc()
	e.logger.Warn("alert delivery failed", "sink", sink, "tag", a.Tag, "error", err)
}

func title(city string, h models.Hazard, tier models.AlertTier) string {
	if tier == models.AlertTierHigh {
		return fmt.Sprintf("%s: HIGH %s Risk", city, h.Title())
	}
	return fmt.Sprintf("%s: %s Watch", city, h.Title())
}

func body(city string, h models.Hazard, tier models.AlertTier, p float64) string {
	pct := math.Round(p * 100)
	if tier == models.AlertTierMedium {
		return fmt.Sprintf("%s risk in %s is %.0f%%. Monitor conditions.", h.Title(), city, pct)
	}
	if h == models.HazardWildfire {
		return fmt.Sprintf("%s risk in %s is %.0f%%. Exercise caution and avoid dry vegetation.", h.Title(), city, pct)
	}
	return fmt.Sprintf("%s risk in %s is %.0f%%. Take precautions and avoid low-lying areas.", h.Title(), city, pct)
}
