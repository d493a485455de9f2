package sources

import (
	"context"

	"github.com/mr1hm/earthpulse/internal/models"
)

// PlacesSource is a places-search provider queried for NGO-like establishments.
type PlacesSource interface {
	// NearbyNGOs lists NGO-like places around c.
	NearbyNGOs(ctx context.Context, c models.Coordinate) ([]models.PlacesResult, error)

	// SearchText returns the best-matching place id for name near c, or "" when
	// nothing matched.
	SearchText(ctx context.Context, name string, c models.Coordinate) (string, error)

	// Details returns the raw detail object for a place. Field names vary by
	// provider, so callers resolve them with ordered candidates.
	Details(ctx context.Context, placeID string) (map[string]any, error)
}
