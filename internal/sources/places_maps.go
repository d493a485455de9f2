package sources

import (
	"context"
	"fmt"

	"github.com/mr1hm/earthpulse/internal/models"
	"googlemaps.github.io/maps"
)

// ngoKeyword narrows nearby search to relief organisations.
const ngoKeyword = "ngo OR non-profit OR foundation OR relief"

// MapsPlacesClient queries the Google Places API directly. It backs the
// service's own /google/* proxy routes.
type MapsPlacesClient struct {
	client *maps.Client
	radius uint
}

func NewMapsPlacesClient(apiKey string, radius int) (*MapsPlacesClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &MapsPlacesClient{client: client, radius: uint(radius)}, nil
}

var _ PlacesSource = (*MapsPlacesClient)(nil)

func (m *MapsPlacesClient) NearbyNGOs(ctx context.Context, c models.Coordinate) ([]models.PlacesResult, error) {
	resp, err := m.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: c.Lat, Lng: c.Lon},
		Radius:   m.radius,
		Keyword:  ngoKeyword,
	})
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	results := make([]models.PlacesResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		pr := models.PlacesResult{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Lat:     r.Geometry.Location.Lat,
			Lon:     r.Geometry.Location.Lng,
			Types:   r.Types,
		}
		if r.Rating > 0 {
			rating := float64(r.Rating)
			pr.Rating = &rating
		}
		results = append(results, pr)
	}
	return results, nil
}

func (m *MapsPlacesClient) SearchText(ctx context.Context, name string, c models.Coordinate) (string, error) {
	resp, err := m.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    name,
		Location: &maps.LatLng{Lat: c.Lat, Lng: c.Lon},
		Radius:   m.radius,
	})
	if err != nil {
		return "", fmt.Errorf("text search: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].PlaceID, nil
}

func (m *MapsPlacesClient) Details(ctx context.Context, placeID string) (map[string]any, error) {
	d, err := m.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{PlaceID: placeID})
	if err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}
	return map[string]any{
		"name":                       d.Name,
		"formatted_phone_number":     d.FormattedPhoneNumber,
		"international_phone_number": d.InternationalPhoneNumber,
		"website":                    d.Website,
		"formatted_address":          d.FormattedAddress,
	}, nil
}
