package domain

import (
	"encoding/json"
	"time"
)

// FilterSet holds export filter criteria keyed by filter name.
// Values follow the remote API's shapes (strings, numbers, string lists).
type FilterSet map[string]any

// Merge returns a new FilterSet with overlay keys applied on top of f.
// Overlay values win on key collision.
func (f FilterSet) Merge(overlay FilterSet) FilterSet {
	merged := make(FilterSet, len(f)+len(overlay))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// Canonical returns a stable JSON encoding of the filter set.
// encoding/json sorts map keys, so two sets with the same content encode
// identically regardless of key insertion order.
func (f FilterSet) Canonical() ([]byte, error) {
	if f == nil {
		f = FilterSet{}
	}
	return json.Marshal(f)
}

// CacheInfo is the metadata stored next to a cached record list.
type CacheInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Filters   FilterSet `json:"filters"`
	Count     int       `json:"count"`

	// Computed on read, never persisted.
	AgeHours float64 `json:"age_hours,omitempty"`
	Stale    bool    `json:"is_stale,omitempty"`
}
