package lookup

// Metric keys and sentinel values used by the ATC service.
const (
	MetricSnow = "snow"
	MetricWind = "wind"

	// NoATCData marks a metric the engineer view shows as unavailable.
	NoATCData = "no_atc_data"

	// Sentinels an override may carry instead of a real value; they never
	// take precedence over resolved data.
	SentinelSC  = "SC"
	SentinelATC = "ATC"
)

// Metric is one resolved climate design value with its per-metric status.
type Metric struct {
	Value  string `json:"value"`
	Status string `json:"status"`
}

// Result is the outcome of a lookup: either a metric mapping or a plain
// message when the location could not be resolved. Callers branch on
// Resolved.
type Result struct {
	Values  map[string]Metric `json:"values,omitempty"`
	Message string            `json:"message,omitempty"`
}

func (r Result) Resolved() bool {
	return r.Message == ""
}

// Location is the authoritative location tuple and raw design values the
// ATC service resolves an address to.
type Location struct {
	State  string `json:"state"`
	County string `json:"county"`
	City   string `json:"city"`
	Snow   string `json:"snow"`
	Wind   string `json:"wind"`
}

// Override carries manually recorded snow/wind values for a project.
type Override struct {
	Snow *string
	Wind *string
}
