package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
)

var _ AlertLogRepository = (*SQLiteDB)(nil)

func (s *SQLiteDB) RecordAlert(ctx context.Context, a models.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO alert_log (id, city, hazard, tier, probability, title, body, tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.City, string(a.Hazard), string(a.Tier), a.Probability, a.Title, a.Body, a.Tag, a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error recording alert: %w", err)
	}
	return nil
}

// ListAlerts returns logged alerts newest first.
func (s *SQLiteDB) ListAlerts(ctx context.Context, opts Filter) ([]models.Alert, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.City != nil {
		where = append(where, "city = ? COLLATE NOCASE")
		args = append(args, *opts.City)
	}
	if opts.Hazard != nil {
		where = append(where, "hazard = ?")
		args = append(args, string(*opts.Hazard))
	}
	if opts.Tier != nil {
		where = append(where, "tier = ?")
		args = append(args, string(*opts.Tier))
	}

	query := `SELECT id, city, hazard, tier, probability, title, body, tag, created_at FROM alert_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var (
			a              models.Alert
			hazard, tier   string
			createdAtMilli int64
		)
		if err := rows.Scan(&a.ID, &a.City, &hazard, &tier, &a.Probability, &a.Title, &a.Body, &a.Tag, &createdAtMilli); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		a.Hazard = models.Hazard(hazard)
		a.Tier = models.AlertTier(tier)
		a.CreatedAt = time.UnixMilli(createdAtMilli).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
