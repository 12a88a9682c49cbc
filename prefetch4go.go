// Package prefetch4go resolves object references of record chunks in bulk,
// memoizing fetched entities in bounded per-model LRU caches backed by GORM
// and an optional Redis second-level cache.
package prefetch4go

import (
	"context"
	"fmt"
	"os"

	"github.com/ammar0144/prefetch4go/pkg/db"
	"github.com/ammar0144/prefetch4go/pkg/prefetch"
	"github.com/ammar0144/prefetch4go/pkg/redis"
	"github.com/ammar0144/prefetch4go/pkg/repository"

	"gopkg.in/yaml.v3"
)

// Config describes one model the resolver caches
type Config = prefetch.Config

// Resolver processes record chunks
type Resolver = prefetch.Resolver

// Record is a unit of a chunk to be enriched
type Record = prefetch.Record

// Entity interface that all cached models must implement
type Entity = prefetch.Entity

// DBConfig represents database configuration
type DBConfig = db.Config

// RedisConfig represents Redis configuration
type RedisConfig = redis.Config

// New creates a resolver, validating configs and preloading prefetch-all models
func New(ctx context.Context, configs []Config, opts ...prefetch.Option) (*Resolver, error) {
	return prefetch.New(ctx, configs, opts...)
}

// NewManager creates a new database manager
func NewManager(config *DBConfig) (*db.Manager, error) {
	return db.NewManager(config)
}

// NewRedisManager creates a new Redis manager
func NewRedisManager(config *RedisConfig) (*redis.Manager, error) {
	return redis.NewManager(config)
}

// NewRepository creates the bulk-fetch repository of model T.
// If redisManager is nil or disabled, rows are read from the database only;
// otherwise they are cached per id in Redis.
func NewRepository[T any, P repository.EntityPtr[T]](dbManager *db.Manager, redisManager *redis.Manager) prefetch.Repository {
	base := repository.NewGormRepository[T, P](dbManager)
	if redisManager == nil || !redisManager.Enabled() {
		return base
	}
	return repository.NewCachedRepository[T, P](base, redisManager)
}

// NewBridge creates the join table repository of the many2many field of model
func NewBridge(dbManager *db.Manager, model interface{}, field string) (*repository.GormBridge, error) {
	return repository.NewGormBridgeFor(dbManager, model, field)
}

// Settings is the file configuration of a resolver process
type Settings struct {
	Database db.Config        `json:"database" yaml:"database"`
	Redis    redis.Config     `json:"redis" yaml:"redis"`
	Prefetch PrefetchSettings `json:"prefetch" yaml:"prefetch"`
}

// PrefetchSettings holds resolver wide defaults
type PrefetchSettings struct {
	DefaultCacheSize int `json:"default_cache_size" yaml:"default_cache_size"`
}

// DefaultSettings returns the settings used for keys missing from a file
func DefaultSettings() Settings {
	return Settings{
		Database: *db.DefaultConfig(),
		Redis:    *redis.DefaultConfig(),
		Prefetch: PrefetchSettings{DefaultCacheSize: prefetch.DefaultCacheSize},
	}
}

// LoadSettings reads a YAML settings file over DefaultSettings and validates it
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks every section
func (s *Settings) Validate() error {
	if err := s.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if s.Prefetch.DefaultCacheSize < 0 {
		return fmt.Errorf("prefetch: default_cache_size cannot be negative")
	}
	return nil
}

// Apply fills the cache size of configs that leave it unset
func (s *Settings) Apply(configs []Config) []Config {
	applied := make([]Config, len(configs))
	for i, cfg := range configs {
		if cfg.CacheSize == 0 {
			cfg.CacheSize = s.Prefetch.DefaultCacheSize
		}
		applied[i] = cfg
	}
	return applied
}
