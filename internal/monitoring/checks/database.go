package checks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/screwcat/internal/monitoring"
)

var errNoDatabase = errors.New("database not configured")

// Database pings the catalog database. Every read path depends on it, so a failed ping is down.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", timeout, func(ctx context.Context) monitoring.CheckResult {
		if db == nil {
			return monitoring.CheckError(errNoDatabase)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.CheckError(err)
		}
		return monitoring.CheckError(sqlDB.PingContext(ctx))
	})
}
