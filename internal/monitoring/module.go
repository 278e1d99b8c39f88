package monitoring

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "screwcat"

// Options control monitoring module configuration.
type Options struct {
	// Namespace prefixes every catalog metric. Defaults to "screwcat".
	Namespace               string
	DisableGoCollector      bool
	DisableProcessCollector bool
}

// Module owns the Prometheus registry, the catalog collectors, the health checks and the
// in-process counters behind Snapshot.
type Module struct {
	registry *prometheus.Registry
	handler  http.Handler
	metrics  *collectorSet
	stats    *statStore
	health   *HealthManager
}

// NewModule builds a module around a private registry so tests can run several side by side.
func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	var runtime []prometheus.Collector
	if !opts.DisableGoCollector {
		runtime = append(runtime, collectors.NewGoCollector())
	}
	if !opts.DisableProcessCollector {
		runtime = append(runtime, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metrics := newCollectorSet(namespace)
	registry := prometheus.NewRegistry()
	for _, c := range append(runtime, metrics.all()...) {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return &Module{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		metrics:  metrics,
		stats:    newStatStore(),
		health:   NewHealthManager(),
	}, nil
}

// Handler serves the module's registry in the Prometheus exposition format.
func (m *Module) Handler() http.Handler {
	if m == nil || m.handler == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Summary returns this module's counters regardless of which module is installed globally.
func (m *Module) Summary() Summary {
	if m == nil || m.stats == nil {
		return Summary{GeneratedAt: time.Now()}
	}
	return m.stats.summary()
}

func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

var installed atomic.Pointer[Module]

// SetModule installs module as the target of the package-level Record* helpers. A nil module
// leaves the current one in place.
func SetModule(module *Module) {
	if module != nil {
		installed.Store(module)
	}
}

func current() *Module {
	return installed.Load()
}
