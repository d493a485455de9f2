package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr1hm/earthpulse/internal/models"
)

// ErrNoSubscription means no browser has registered for push delivery.
var ErrNoSubscription = errors.New("no push subscription recorded")

// SubscriptionCounter reports how many push subscriptions are on record.
type SubscriptionCounter interface {
	CountSubscriptions(ctx context.Context) (int, error)
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// PushRelay hands alerts to the push relay backend, which owns delivery to
// the recorded subscriptions.
type PushRelay struct {
	url           string
	subscriptions SubscriptionCounter
	httpClient    *http.Client
}

func NewPushRelay(url string, subscriptions SubscriptionCounter, timeout time.Duration) *PushRelay {
	return &PushRelay{
		url:           url,
		subscriptions: subscriptions,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func (p *PushRelay) Notify(ctx context.Context, a models.Alert) error {
	n, err := p.subscriptions.CountSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("count subscriptions: %w", err)
	}
	if n == 0 {
		return ErrNoSubscription
	}

	body, err := json.Marshal(pushPayload{Title: a.Title, Body: a.Body, Tag: a.Tag})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push relay returned status %d", resp.StatusCode)
	}
	return nil
}
