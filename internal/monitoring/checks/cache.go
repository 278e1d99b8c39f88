package checks

import (
	"context"
	"time"

	"github.com/charlesng35/screwcat/internal/monitoring"
)

// CachePinger is the part of the response cache the check needs.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Cache checks the response cache. Reads fall through to the database while the cache is
// unreachable, so failures only degrade the report.
func Cache(pinger CachePinger, enabled bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", timeout, func(ctx context.Context) monitoring.CheckResult {
		switch {
		case !enabled:
			return monitoring.CheckResult{Status: monitoring.StatusUp, Details: "cache disabled"}
		case pinger == nil:
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: "cache unavailable"}
		}
		if err := pinger.Ping(ctx); err != nil {
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: err.Error()}
		}
		return monitoring.CheckResult{Status: monitoring.StatusUp}
	})
}
