package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/screwcat/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance inspects the recorded background job runs. Expired cache rows are already ignored
// on read, so a failing or overdue sweep degrades readiness without failing it.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", 0, func(ctx context.Context) monitoring.CheckResult {
		jobs := monitoring.Snapshot().Maintenance.Jobs
		if len(jobs) == 0 {
			return monitoring.CheckResult{Status: monitoring.StatusUp, Details: "no runs recorded yet"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var notes []string
		for _, job := range jobs {
			if job.ConsecutiveFailures > 0 {
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				notes = append(notes, fmt.Sprintf("%s: %d consecutive failures", job.Job, job.ConsecutiveFailures))
			}
			if !job.LastSuccessAt.IsZero() && now.Sub(job.LastSuccessAt) > maxAge {
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				notes = append(notes, fmt.Sprintf("%s: last success %s", job.Job, job.LastSuccessAt.UTC().Format(time.RFC3339)))
			}
		}
		return monitoring.CheckResult{Status: status, Details: strings.Join(notes, "; ")}
	})
}
