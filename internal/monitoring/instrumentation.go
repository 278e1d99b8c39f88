package monitoring

import (
	"strings"
	"time"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// ObserveAPILatency captures the HTTP request latency for the supplied route.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	module := current()
	if module == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	module.metrics.apiLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordCacheLookup counts a response-cache lookup for the namespace.
func RecordCacheLookup(namespace, result string) {
	module := current()
	if module == nil {
		return
	}
	ns := normalizeNamespace(namespace)
	label := normalizeLabel(result)
	module.metrics.cacheLookups.WithLabelValues(ns, label).Inc()
	module.stats.cacheEntry(ns).recordLookup(label)
}

// RecordCacheWrite counts an attempt to store a response in the cache.
func RecordCacheWrite(namespace string, err error) {
	module := current()
	if module == nil {
		return
	}
	ns := normalizeNamespace(namespace)
	module.metrics.cacheWrites.WithLabelValues(ns, resultLabel(err)).Inc()
	if err != nil {
		module.stats.cacheEntry(ns).writeFailures.Add(1)
	}
}

// RecordCacheInvalidation counts an invalidation issued after a catalog write.
func RecordCacheInvalidation(namespace string, err error) {
	module := current()
	if module == nil {
		return
	}
	ns := normalizeNamespace(namespace)
	module.metrics.cacheInvalidations.WithLabelValues(ns, resultLabel(err)).Inc()
	stats := module.stats.cacheEntry(ns)
	stats.invalidations.Add(1)
	if err != nil {
		stats.invalidationFailures.Add(1)
		stats.lastFailure.Store(strings.TrimSpace(err.Error()))
	}
}

// RecordCatalogWrite counts a create, update or delete against the catalog.
func RecordCatalogWrite(operation string, err error) {
	module := current()
	if module == nil {
		return
	}
	module.metrics.catalogWrites.WithLabelValues(normalizeLabel(operation), resultLabel(err)).Inc()
}

// RecordImport captures the outcome of a spreadsheet import.
func RecordImport(result string, inserted, submitted, rejected int, duration time.Duration) {
	module := current()
	if module == nil {
		return
	}
	result = normalizeLabel(result)
	module.metrics.importRuns.WithLabelValues(result).Inc()
	observeDuration(module.metrics.importDuration, duration)

	duplicates := submitted - inserted
	if duplicates < 0 {
		duplicates = 0
	}
	addRows := func(outcome string, n int) {
		if n > 0 {
			module.metrics.importRows.WithLabelValues(outcome).Add(float64(n))
		}
	}
	addRows("inserted", inserted)
	addRows("duplicate", duplicates)
	addRows("rejected", rejected)

	module.stats.recordImport(result, inserted, duplicates, rejected, duration)
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := current()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

// normalizeNamespace keeps the case of cache namespaces (SCREWS, SCREW) and strips the separator.
func normalizeNamespace(namespace string) string {
	namespace = strings.TrimSuffix(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		return "default"
	}
	return namespace
}

func sanitizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "/" {
		return "root"
	}
	path = strings.Trim(path, "/")
	return strings.ReplaceAll(path, " ", "_")
}
