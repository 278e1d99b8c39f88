package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrFastenerNotFound indicates the requested fastener does not exist or was deleted.
	ErrFastenerNotFound = errors.New("catalog service: fastener not found")
	// ErrNoRowsAffected indicates a write statement matched nothing.
	ErrNoRowsAffected = errors.New("catalog service: no rows affected")
	// ErrUnknownReference indicates a material or type name that resolves to no row.
	ErrUnknownReference = errors.New("catalog service: unknown reference")
	// ErrNoValidRows indicates an import where every row was rejected.
	ErrNoValidRows = errors.New("import service: no valid rows")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
