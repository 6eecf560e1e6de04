package projection

import (
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/cache"
	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
)

// CacheInfo describes the cache entry a response was served from.
type CacheInfo struct {
	CacheState cache.State `json:"cache_state"`
	FetchedAt  time.Time   `json:"fetched_at"`
	Stale      bool        `json:"stale"`

	// RefreshError is set when a forced refresh failed and the previous value was served.
	RefreshError string `json:"refresh_error,omitempty"`
}

// RollupResponse is the body of GET /v1/rollups.
type RollupResponse struct {
	*coreagg.Rollup
	CacheInfo
}

// EventsResponse is the body of GET /v1/collection-events.
type EventsResponse struct {
	v1.EventList
	CacheInfo
}

// rollupQuery binds the GET /v1/rollups query string.
type rollupQuery struct {
	Dimension   string `form:"dimension"`
	ID          string `form:"id"`
	Granularity string `form:"granularity"`
	Start       string `form:"start"`
	End         string `form:"end"`
	AllowStale  bool   `form:"allow_stale"`
	Refresh     bool   `form:"refresh"`
}

// eventsQuery binds the GET /v1/collection-events and /revision query strings.
type eventsQuery struct {
	ProducerID  string `form:"producer_id"`
	CollectorID string `form:"collector_id"`
	Slot        string `form:"slot"`
	Start       string `form:"start"`
	End         string `form:"end"`
	AllowStale  bool   `form:"allow_stale"`
	Refresh     bool   `form:"refresh"`
}
