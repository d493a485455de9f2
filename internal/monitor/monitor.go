// Package monitor periodically checks the risk for a fixed list of cities and
// pushes alerts for the ones at risk.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/config"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/prediction"
	"github.com/mr1hm/earthpulse/internal/worker"
)

type Predictor interface {
	Predict(ctx context.Context, q prediction.Query) (models.PredictionResult, error)
}

type Monitor struct {
	cfg       config.MonitorConfig
	workers   config.WorkerConfig
	predictor Predictor
	evaluator *alerts.Evaluator
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger

	pool *worker.Pool[string]

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewMonitor(cfg config.MonitorConfig, workers config.WorkerConfig, predictor Predictor, evaluator *alerts.Evaluator, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:       cfg,
		workers:   workers,
		predictor: predictor,
		evaluator: evaluator,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
		lastSent:  make(map[string]time.Time),
	}
}

// Start launches the worker pool, runs a first check and schedules the rest
// on sched. The caller starts and stops sched.
func (m *Monitor) Start(ctx context.Context, sched *Scheduler) error {
	m.pool = worker.NewPool("monitor", m.workers.Count, m.workers.BufferSize, m.Check, m.logger)
	m.pool.Start(ctx)

	if err := sched.Every("risk-monitor", m.cfg.Interval, func() { m.RunOnce(ctx) }); err != nil {
		m.pool.Stop()
		return err
	}

	m.logger.Info("risk monitor started", "cities", m.cfg.Cities, "interval", m.cfg.Interval, "cooldown", m.cfg.Cooldown)
	m.RunOnce(ctx)
	return nil
}

// RunOnce queues a check for every configured city. Cities that do not fit in
// the queue are skipped until the next run.
func (m *Monitor) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, city := range m.cfg.Cities {
		if !m.pool.TrySubmit(city) {
			m.logger.Warn("monitor queue full, skipping city", "city", city)
		}
	}
}

// Check predicts the risk for city and emits alerts that reach the hazard's
// threshold and fall outside the cooldown window to the live stream and push
// relay.
func (m *Monitor) Check(ctx context.Context, city string) error {
	res, err := m.predictor.Predict(ctx, prediction.Query{City: city})
	if err != nil {
		m.metrics.MonitorChecks.WithLabelValues("error").Inc()
		return fmt.Errorf("check %s: %w", city, err)
	}

	suppressed := 0
	emitted := m.evaluator.Evaluate(ctx, city, res, alerts.Delivery{
		Native: true,
		Push:   true,
		Allow: func(a models.Alert) bool {
			if a.Probability < m.threshold(a.Hazard) {
				return false
			}
			if m.claim(a.City, a.Hazard) {
				return true
			}
			suppressed++
			return false
		},
	})

	switch {
	case len(emitted) > 0:
		m.metrics.MonitorChecks.WithLabelValues("alerted").Inc()
	case suppressed > 0:
		m.metrics.MonitorChecks.WithLabelValues("cooldown").Inc()
	default:
		m.metrics.MonitorChecks.WithLabelValues("quiet").Inc()
	}

	m.logger.Debug("risk check complete", "city", city, "alerts", len(emitted), "suppressed", suppressed)
	return nil
}

func (m *Monitor) threshold(h models.Hazard) float64 {
	if h == models.HazardWildfire {
		return m.cfg.WildfireThreshold
	}
	return m.cfg.FloodThreshold
}

// claim reports whether city/hazard is outside its cooldown and, if so,
// starts a new window.
func (m *Monitor) claim(city string, h models.Hazard) bool {
	key := city + ":" + string(h)
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cfg.Cooldown {
		return false
	}
	m.lastSent[key] = now
	return true
}

func (m *Monitor) Stop() {
	if m.pool != nil {
		m.pool.Stop()
	}
	m.logger.Info("risk monitor stopped")
}
