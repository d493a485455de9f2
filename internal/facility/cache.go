package facility

import (
	"strconv"

	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/puzpuzpuz/xsync/v3"
)

// CacheEntry records what is known about one facility. PlaceResolved is set
// once a place id lookup ran, even when it found nothing.
type CacheEntry struct {
	PlaceID       string
	PlaceResolved bool
	Detail        *models.FacilityDetail
}

// DetailCache holds resolved place ids and details for the lifetime of a
// session. Entries are never evicted; Reset is the only way to drop them.
type DetailCache struct {
	m *xsync.MapOf[string, CacheEntry]
}

func NewDetailCache() *DetailCache {
	return &DetailCache{m: xsync.NewMapOf[string, CacheEntry]()}
}

// CacheKey identifies a facility by its place id when known, else by
// name, latitude and longitude.
func CacheKey(f models.MergedFacility) string {
	if f.PlaceID != "" {
		return "place:" + f.PlaceID
	}
	return f.Name + "|" + strconv.FormatFloat(f.Lat, 'f', -1, 64) + "|" + strconv.FormatFloat(f.Lon, 'f', -1, 64)
}

func (c *DetailCache) Get(key string) (CacheEntry, bool) {
	return c.m.Load(key)
}

func (c *DetailCache) Put(key string, e CacheEntry) {
	c.m.Store(key, e)
}

func (c *DetailCache) Len() int {
	return c.m.Size()
}

func (c *DetailCache) Reset() {
	c.m.Clear()
}
