package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthStatus encodes the outcome of a health check.
type HealthStatus string

const (
	StatusUp       HealthStatus = "up"
	StatusDown     HealthStatus = "down"
	StatusDegraded HealthStatus = "degraded"
)

// CheckKind selects which check set a check belongs to.
type CheckKind string

const (
	Liveness  CheckKind = "liveness"
	Readiness CheckKind = "readiness"
)

const defaultCheckTimeout = 2 * time.Second

// CheckResult is one dependency's outcome.
type CheckResult struct {
	Component string        `json:"component"`
	Status    HealthStatus  `json:"status"`
	Details   string        `json:"details,omitempty"`
	Latency   string        `json:"latency"`
	Duration  time.Duration `json:"-"`
}

// HealthReport aggregates check results. A degraded dependency keeps the report successful
// because the catalog still answers from the database; only a down check fails it.
type HealthReport struct {
	Success   bool          `json:"success"`
	Status    HealthStatus  `json:"status"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// CheckFunc runs one dependency check. The context carries the check's timeout.
type CheckFunc func(ctx context.Context) CheckResult

// Check is a named check with its own deadline.
type Check struct {
	Name    string
	Timeout time.Duration
	Run     CheckFunc
}

// NewCheck builds a check. A nil fn always reports down; a non-positive timeout uses two seconds.
func NewCheck(name string, timeout time.Duration, fn CheckFunc) Check {
	if fn == nil {
		fn = func(context.Context) CheckResult {
			return CheckResult{Status: StatusDown, Details: "check not implemented"}
		}
	}
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return Check{Name: name, Timeout: timeout, Run: fn}
}

// HealthManager holds the liveness and readiness check sets. Checks may be registered while
// requests are being served.
type HealthManager struct {
	mu     sync.RWMutex
	checks map[CheckKind][]Check
	now    func() time.Time
}

func NewHealthManager() *HealthManager {
	return &HealthManager{checks: make(map[CheckKind][]Check), now: time.Now}
}

// Register adds check to the check set of kind. Unnamed checks are ignored.
func (m *HealthManager) Register(kind CheckKind, check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	m.mu.Lock()
	m.checks[kind] = append(m.checks[kind], check)
	m.mu.Unlock()
}

// Evaluate runs the checks of the given kinds concurrently. With no kinds it runs every check,
// liveness first. Results keep registration order.
func (m *HealthManager) Evaluate(ctx context.Context, kinds ...CheckKind) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(kinds) == 0 {
		kinds = []CheckKind{Liveness, Readiness}
	}

	m.mu.RLock()
	var checks []Check
	for _, kind := range kinds {
		checks = append(checks, m.checks[kind]...)
	}
	m.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var group errgroup.Group
	for i, check := range checks {
		group.Go(func() error {
			results[i] = runCheck(ctx, check)
			return nil
		})
	}
	_ = group.Wait()

	report := aggregate(results)
	report.CheckedAt = m.now().UTC()
	return report
}

func aggregate(results []CheckResult) HealthReport {
	report := HealthReport{Success: true, Status: StatusUp, Checks: results}
	if report.Checks == nil {
		report.Checks = []CheckResult{}
	}
	for _, result := range results {
		report.Status = Worst(report.Status, result.Status)
	}
	report.Success = report.Status != StatusDown
	return report
}

// Worst returns the more severe of two statuses.
func Worst(a, b HealthStatus) HealthStatus {
	switch {
	case a == StatusDown || b == StatusDown:
		return StatusDown
	case a == StatusDegraded || b == StatusDegraded:
		return StatusDegraded
	default:
		return StatusUp
	}
}

func runCheck(ctx context.Context, check Check) (result CheckResult) {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result = CheckResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		result.Component = check.Name
		result.Duration = time.Since(start)
		result.Latency = result.Duration.Round(time.Microsecond).String()
	}()

	return check.Run(checkCtx)
}

// CheckError converts a check error into a result. A check that ran out of time is degraded
// rather than down.
func CheckError(err error) CheckResult {
	if err == nil {
		return CheckResult{Status: StatusUp}
	}
	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return CheckResult{Status: status, Details: err.Error()}
}
