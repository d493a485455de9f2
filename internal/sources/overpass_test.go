package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr1hm/earthpulse/internal/logging"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFacilityQuery(t *testing.T) {
	q := BuildFacilityQuery(models.Coordinate{Lat: 28.6139, Lon: 77.209}, 5000)

	assert.True(t, strings.HasPrefix(q, "[out:json]"))
	assert.Contains(t, q, `nwr["emergency"="fire_station"](around:5000,28.613900,77.209000);`)
	assert.Contains(t, q, `nwr["social_facility:for"="disaster"]`)
	assert.Contains(t, q, "out center tags;")
	assert.Equal(t, len(facilityPredicates), strings.Count(q, "nwr["))
}

func TestOverpassClient_FetchFacilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "around:1000")

		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":12.9,"lon":77.5,"tags":{"amenity":"police","name":"Central Police"}},
			{"type":"way","id":2,"center":{"lat":12.8,"lon":77.4},"tags":{"emergency":"fire_station"}},
			{"type":"relation","id":3,"tags":{"office":"ngo"}}
		]}`))
	}))
	defer srv.Close()

	client := NewOverpassClient(srv.URL, "test", observability.NewMetricsForTesting(), logging.Discard())
	records, err := client.FetchFacilities(context.Background(), models.Coordinate{Lat: 12.9, Lon: 77.5}, 1000)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Central Police", records[0].Name)
	assert.Equal(t, osm.TypeNode, records[0].Type)
	assert.Equal(t, "police", records[0].Tags.Find("amenity"))
	c, ok := records[0].Coordinate()
	assert.True(t, ok)
	assert.Equal(t, 12.9, c.Lat)

	c, ok = records[1].Coordinate()
	assert.True(t, ok)
	assert.Equal(t, 12.8, c.Lat)
	assert.Equal(t, 77.4, c.Lon)

	_, ok = records[2].Coordinate()
	assert.False(t, ok)
}

func TestOverpassClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	client := NewOverpassClient(srv.URL, "test", observability.NewMetricsForTesting(), logging.Discard())
	_, err := client.FetchFacilities(context.Background(), models.Coordinate{}, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestBuildWaterwayQuery(t *testing.T) {
	q := BuildWaterwayQuery(models.Coordinate{Lat: 18.52, Lon: 73.85}, DefaultWaterwayRadius)

	assert.Contains(t, q, `way["waterway"](around:15000,18.520000,73.850000);`)
	assert.Contains(t, q, `relation["natural"="water"]`)
	assert.Contains(t, q, `way["landuse"="reservoir"]`)
	assert.Contains(t, q, "out geom;")
}

func TestOverpassClient_FetchWaterways(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "around:15000")

		_, _ = w.Write([]byte(`{"elements":[
			{"type":"way","id":10,"tags":{"waterway":"river"},"geometry":[{"lat":18.5,"lon":73.8},{"lat":18.6,"lon":73.9}]},
			{"type":"way","id":11,"tags":{"natural":"water"},"geometry":[{"lat":18.5,"lon":73.8},{"lat":18.51,"lon":73.81},{"lat":18.5,"lon":73.8}]},
			{"type":"relation","id":12,"tags":{"waterway":"canal"}},
			{"type":"way","id":13,"tags":{"waterway":"drain"},"geometry":[{"lat":18.5,"lon":73.8}]}
		]}`))
	}))
	defer srv.Close()

	client := NewOverpassClient(srv.URL, "test", observability.NewMetricsForTesting(), logging.Discard())
	ways, err := client.FetchWaterways(context.Background(), models.Coordinate{Lat: 18.52, Lon: 73.85}, 0)
	require.NoError(t, err)
	require.Len(t, ways, 2)

	assert.Equal(t, int64(10), ways[0].ID)
	assert.Equal(t, "river", ways[0].Kind)
	assert.Equal(t, 73.8, ways[0].Line[0].Lon())
	assert.Equal(t, 18.5, ways[0].Line[0].Lat())
	assert.Equal(t, "water", ways[1].Kind)
}
