package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/screwcat/internal/models"
	"github.com/charlesng35/screwcat/pkg/logger"
)

// DatabaseStore implements Store on the primary SQL database. It serves deployments without
// redis; expired rows are ignored on read and removed by Sweep.
type DatabaseStore struct {
	db        *gorm.DB
	namespace string
	codec     Codec
	now       func() time.Time
	log       *zap.Logger
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB, namespace string, codec Codec) *DatabaseStore {
	if db == nil {
		return nil
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &DatabaseStore{
		db:        db,
		namespace: namespace,
		codec:     codec,
		now:       time.Now,
		log:       logger.WithModule("cache"),
	}
}

// Set upserts the entry with an absolute expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	raw, err := s.codec.Encode(entry)
	if err != nil {
		return err
	}

	row := models.CacheEntry{
		Key:       s.namespace + key,
		Value:     raw,
		ExpiresAt: s.now().Add(ttl),
	}

	return s.db.WithContext(ensuredContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&row).Error
}

// Get retrieves an entry, treating expired rows as absent.
func (s *DatabaseStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	if s == nil {
		return nil, false, errors.New("cache: database store not initialised")
	}

	var row models.CacheEntry
	err := s.db.WithContext(ensuredContext(ctx)).Where(keyEquals(s.namespace + key)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if row.Expired(s.now()) {
		return nil, false, nil
	}
	return s.codec.Decode(row.Value)
}

// Delete removes a single key.
func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	return s.db.WithContext(ensuredContext(ctx)).Where(keyEquals(s.namespace + key)).Delete(&models.CacheEntry{}).Error
}

// Clear removes every row whose key starts with namespace+pattern in one statement.
func (s *DatabaseStore) Clear(ctx context.Context, pattern string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	prefix := s.namespace + pattern
	err := s.db.WithContext(ensuredContext(ctx)).
		Where(clause.Expr{SQL: "? LIKE ? ESCAPE '!'", Vars: []interface{}{keyColumn, escapeLike(prefix) + "%"}}).
		Delete(&models.CacheEntry{}).Error
	if err != nil {
		s.log.Error("cache clear failed", zap.String("prefix", prefix), zap.Error(err))
		return &InvalidationError{Prefix: prefix, Err: err}
	}
	return nil
}

// Sweep deletes rows that expired before now and reports how many were removed.
func (s *DatabaseStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}
	result := s.db.WithContext(ensuredContext(ctx)).
		Where("expires_at <= ?", now).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

// Ping verifies the database connection.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ensuredContext(ctx))
}

// keyColumn is quoted by gorm; KEY is reserved in MySQL.
var keyColumn = clause.Column{Name: "key"}

func keyEquals(key string) clause.Expression {
	return clause.Eq{Column: keyColumn, Value: key}
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return replacer.Replace(s)
}
