package lookup

import (
	"context"
	"log"

	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

const unresolvedMsg = "We could not find climate data for the project location. The project will be forwarded to an engineer."

type fetcher interface {
	fetch(ctx context.Context, state, county, city string) (*atcResponse, error)
}

// Resolver adapts the ATC client to the workflow: standard lookups,
// engineer-value normalization, and the location-keyed write-through
// meteo cache.
type Resolver struct {
	client fetcher
	cache  *MeteoCache
}

func NewResolver(client *Client, cache *MeteoCache) *Resolver {
	return &Resolver{client: client, cache: cache}
}

// DoLookup resolves climate metrics for the project location. An
// unresolvable location yields a message Result, not an error.
func (r *Resolver) DoLookup(ctx context.Context, p *domain.Project) (Result, error) {
	resp, err := r.client.fetch(ctx, p.State, p.County, p.City)
	if err != nil {
		return Result{}, err
	}
	if !resp.Found {
		msg := resp.Message
		if msg == "" {
			msg = unresolvedMsg
		}
		return Result{Message: msg}, nil
	}
	return Result{Values: resp.Metrics}, nil
}

// DoLookupEngineerValues resolves snow/wind for the engineer view:
// missing or sentinel metrics collapse to NoATCData, and manually
// recorded overrides win whenever present and not themselves a sentinel.
func (r *Resolver) DoLookupEngineerValues(ctx context.Context, p *domain.Project, ov *Override) (map[string]string, error) {
	res, err := r.DoLookup(ctx, p)
	if err != nil {
		return nil, err
	}

	out := map[string]string{
		MetricSnow: normalizeMetric(res, MetricSnow),
		MetricWind: normalizeMetric(res, MetricWind),
	}

	if ov != nil {
		if v := usableOverride(ov.Snow); v != "" {
			out[MetricSnow] = v
		}
		if v := usableOverride(ov.Wind); v != "" {
			out[MetricWind] = v
		}
	}
	return out, nil
}

// CheckLocation returns the authoritative location tuple and raw design
// values for the project address.
func (r *Resolver) CheckLocation(ctx context.Context, p *domain.Project) (Location, error) {
	resp, err := r.client.fetch(ctx, p.State, p.County, p.City)
	if err != nil {
		return Location{}, err
	}

	loc := Location{State: resp.State, County: resp.County, City: resp.City}
	if m, ok := resp.Metrics[MetricSnow]; ok {
		loc.Snow = m.Value
	}
	if m, ok := resp.Metrics[MetricWind]; ok {
		loc.Wind = m.Value
	}
	return loc, nil
}

// CacheIfMoved writes a meteo cache row when the resolved location tuple
// differs from what the project records. Best effort: a cache failure
// never blocks the caller.
func (r *Resolver) CacheIfMoved(ctx context.Context, p *domain.Project, loc Location, res Result) {
	if loc.State == p.State && loc.County == p.County && loc.City == p.City {
		return
	}
	if err := r.cache.CreateMeteoInfo(ctx, loc, res); err != nil {
		log.Printf("meteo cache write failed for project %d: %v", p.ID, err)
	}
}

func normalizeMetric(res Result, key string) string {
	if !res.Resolved() {
		return NoATCData
	}
	m, ok := res.Values[key]
	if !ok || m.Value == "" {
		return NoATCData
	}
	return m.Value
}

func usableOverride(v *string) string {
	if v == nil || *v == "" || *v == SentinelSC || *v == SentinelATC {
		return ""
	}
	return *v
}
