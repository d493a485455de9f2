package models

import "time"

type AlertTier string

const (
	AlertTierMedium AlertTier = "MEDIUM"
	AlertTierHigh   AlertTier = "HIGH"
)

type Alert struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Hazard      Hazard    `json:"hazard"`
	Tier        AlertTier `json:"tier"`
	Probability float64   `json:"probability"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Tag         string    `json:"tag"`
	CreatedAt   time.Time `json:"created_at"`
}

// PushSubscription is an opaque browser push subscription. Endpoint is the
// identity used to replace an earlier registration from the same browser.
type PushSubscription struct {
	Endpoint  string
	Raw       []byte
	CreatedAt time.Time
}
