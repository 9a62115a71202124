package poller

import (
	"time"

	"farm_poller/internal/domain/entity"
)

const (
	DefaultFastInterval = 10 * time.Second
	DefaultAPIInterval  = 50 * time.Second
	DefaultSlowInterval = 5 * time.Minute
)

// RefreshPolicy maps a resource kind and flag variant to a cadence. All
// flag-dependent scheduling decisions live here.
type RefreshPolicy struct {
	Fast time.Duration
	API  time.Duration
	Slow time.Duration
}

// DefaultRefreshPolicy returns the production cadences.
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{
		Fast: DefaultFastInterval,
		API:  DefaultAPIInterval,
		Slow: DefaultSlowInterval,
	}
}

// Interval returns the refresh interval for kind under variant. Zero means
// fetch once for the lifetime of the key.
func (p RefreshPolicy) Interval(kind entity.ResourceKind, variant entity.FlagVariant) time.Duration {
	switch kind {
	case entity.KindPublicFarmData:
		if variant.IsAPI() {
			return p.API
		}
		return p.Slow
	case entity.KindCoreFarmData:
		return p.Fast
	case entity.KindInitialFarmData:
		return 0
	default:
		return p.Slow
	}
}

// Active reports whether kind is polled at all under variant. The core subset
// is skipped while the farms API already serves it.
func Active(kind entity.ResourceKind, variant entity.FlagVariant) bool {
	if kind == entity.KindCoreFarmData {
		return !variant.IsAPI()
	}
	return true
}
