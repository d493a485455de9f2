package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
)

var _ SubscriptionRepository = (*SQLiteDB)(nil)

// SaveSubscription replaces any earlier subscription with the same endpoint.
func (s *SQLiteDB) SaveSubscription(ctx context.Context, sub *models.PushSubscription) error {
	if sub.Endpoint == "" {
		return fmt.Errorf("subscription endpoint is required")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (endpoint, raw, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET raw = excluded.raw, created_at = excluded.created_at`,
		sub.Endpoint, sub.Raw, sub.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error saving subscription: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CountSubscriptions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM push_subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting subscriptions: %w", err)
	}
	return n, nil
}

func (s *SQLiteDB) ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT endpoint, raw, created_at FROM push_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var (
			sub       models.PushSubscription
			createdAt int64
		)
		if err := rows.Scan(&sub.Endpoint, &sub.Raw, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning subscription: %w", err)
		}
		sub.CreatedAt = time.UnixMilli(createdAt)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLiteDB) DeleteSubscription(ctx context.Context, endpoint string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint); err != nil {
		return fmt.Errorf("error deleting subscription: %w", err)
	}
	return nil
}
