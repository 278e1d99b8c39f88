package monitoring

import "time"

// Summary surfaces aggregated runtime counters for the catalog service.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Cache       []CacheSummary     `json:"cache"`
	Imports     ImportSummary      `json:"imports"`
	Maintenance MaintenanceSummary `json:"maintenance"`
}

// CacheSummary reports lookups and invalidations for one cache namespace.
type CacheSummary struct {
	Namespace            string  `json:"namespace"`
	Hits                 uint64  `json:"hits"`
	Misses               uint64  `json:"misses"`
	Errors               uint64  `json:"errors"`
	HitRatio             float64 `json:"hit_ratio"`
	WriteFailures        uint64  `json:"write_failures"`
	Invalidations        uint64  `json:"invalidations"`
	InvalidationFailures uint64  `json:"invalidation_failures"`
	LastFailure          string  `json:"last_failure,omitempty"`
}

type ImportSummary struct {
	Runs         uint64        `json:"runs"`
	Failures     uint64        `json:"failures"`
	RowsInserted uint64        `json:"rows_inserted"`
	Duplicates   uint64        `json:"duplicates"`
	RowsRejected uint64        `json:"rows_rejected"`
	LastResult   string        `json:"last_result,omitempty"`
	LastRunAt    time.Time     `json:"last_run_at"`
	LastDuration time.Duration `json:"last_duration"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := current(); module != nil && module.stats != nil {
		return module.stats.summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
