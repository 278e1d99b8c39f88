package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	caches      sync.Map // string -> *cacheStats
	maintenance sync.Map // string -> *maintenanceStats

	imports importStats
}

func newStatStore() *statStore {
	return &statStore{}
}

func (s *statStore) summary() Summary {
	return Summary{
		GeneratedAt: time.Now(),
		Cache:       s.cloneCaches(),
		Imports:     s.imports.snapshot(),
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) cloneCaches() []CacheSummary {
	summaries := []CacheSummary{}
	s.caches.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*cacheStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Namespace < summaries[j].Namespace })
	return summaries
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*maintenanceStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

func (s *statStore) cacheEntry(namespace string) *cacheStats {
	value, ok := s.caches.Load(namespace)
	if ok {
		return value.(*cacheStats)
	}
	actual, _ := s.caches.LoadOrStore(namespace, &cacheStats{})
	return actual.(*cacheStats)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	actual, _ := s.maintenance.LoadOrStore(job, &maintenanceStats{})
	return actual.(*maintenanceStats)
}

func (s *statStore) recordImport(result string, inserted, duplicates, rejected int, duration time.Duration) {
	s.imports.record(result, inserted, duplicates, rejected, duration)
}

type cacheStats struct {
	hits                 atomic.Uint64
	misses               atomic.Uint64
	errors               atomic.Uint64
	writeFailures        atomic.Uint64
	invalidations        atomic.Uint64
	invalidationFailures atomic.Uint64
	lastFailure          atomic.Value // string
}

func (c *cacheStats) recordLookup(result string) {
	switch result {
	case CacheHit:
		c.hits.Add(1)
	case CacheMiss:
		c.misses.Add(1)
	default:
		c.errors.Add(1)
	}
}

func (c *cacheStats) snapshot(namespace string) CacheSummary {
	lastFailure, _ := c.lastFailure.Load().(string)
	hits := c.hits.Load()
	misses := c.misses.Load()

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return CacheSummary{
		Namespace:            namespace,
		Hits:                 hits,
		Misses:               misses,
		Errors:               c.errors.Load(),
		HitRatio:             ratio,
		WriteFailures:        c.writeFailures.Load(),
		Invalidations:        c.invalidations.Load(),
		InvalidationFailures: c.invalidationFailures.Load(),
		LastFailure:          lastFailure,
	}
}

type importStats struct {
	mu           sync.Mutex
	runs         uint64
	failures     uint64
	inserted     uint64
	duplicates   uint64
	rejected     uint64
	lastResult   string
	lastRunAt    time.Time
	lastDuration time.Duration
}

func (i *importStats) record(result string, inserted, duplicates, rejected int, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	i.runs++
	if result != "success" {
		i.failures++
	}
	i.inserted += uint64(max(inserted, 0))
	i.duplicates += uint64(max(duplicates, 0))
	i.rejected += uint64(max(rejected, 0))
	i.lastResult = result
	i.lastRunAt = time.Now()
	i.lastDuration = duration
}

func (i *importStats) snapshot() ImportSummary {
	i.mu.Lock()
	defer i.mu.Unlock()

	return ImportSummary{
		Runs:         i.runs,
		Failures:     i.failures,
		RowsInserted: i.inserted,
		Duplicates:   i.duplicates,
		RowsRejected: i.rejected,
		LastResult:   i.lastResult,
		LastRunAt:    i.lastRunAt,
		LastDuration: i.lastDuration,
	}
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           time.Unix(0, m.lastRun.Load()),
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       time.Unix(0, m.lastSuccessfulRun.Load()),
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	if result == "success" {
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
		return
	}
	m.consecutiveFailures.Add(1)
	m.consecutiveSuccesses.Store(0)
}
