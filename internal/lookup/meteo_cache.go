package lookup

import (
	"context"
	"fmt"

	"github.com/pzse-platform/iebc-backend/internal/db"
)

// MeteoCache persists resolved climate values keyed by location tuple.
// The unique constraint makes repeated writes for an unchanged location
// no-ops.
type MeteoCache struct {
	db *db.DB
}

func NewMeteoCache(database *db.DB) *MeteoCache {
	return &MeteoCache{db: database}
}

func (c *MeteoCache) CreateMeteoInfo(ctx context.Context, loc Location, res Result) error {
	snow, wind := loc.Snow, loc.Wind
	if m, ok := res.Values[MetricSnow]; ok && m.Value != "" {
		snow = m.Value
	}
	if m, ok := res.Values[MetricWind]; ok && m.Value != "" {
		wind = m.Value
	}

	const q = `
INSERT INTO meteo_info (state, county, city, snow, wind)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (state, county, city) DO NOTHING;
`
	if _, err := c.db.Q(ctx).Exec(ctx, q, loc.State, loc.County, loc.City, snow, wind); err != nil {
		return fmt.Errorf("insert meteo info: %w", err)
	}
	return nil
}
