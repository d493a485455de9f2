package repository

import (
	"context"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
)

type Filter struct {
	Limit  int
	Offset int
	Since  *time.Time
	City   *string
	Hazard *models.Hazard
	Tier   *models.AlertTier
}

// SubscriptionRepository stores browser push subscriptions keyed by endpoint.
type SubscriptionRepository interface {
	SaveSubscription(ctx context.Context, sub *models.PushSubscription) error
	CountSubscriptions(ctx context.Context) (int, error)
	ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// AlertLogRepository is the append-only log of emitted alerts.
type AlertLogRepository interface {
	RecordAlert(ctx context.Context, a models.Alert) error
	ListAlerts(ctx context.Context, opts Filter) ([]models.Alert, error)
}
