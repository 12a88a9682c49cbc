package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const cacheKeySeparator = ":"

// Manager manages Redis connections and cache operations
type Manager struct {
	config        *Config
	client        redis.UniversalClient
	clusterClient *redis.ClusterClient
	metrics       *Metrics
}

// NewManager creates a new Redis cache manager
func NewManager(config *Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	manager := &Manager{
		config:  config,
		metrics: NewMetrics(),
	}
	manager.initializeClient()

	return manager, nil
}

// initializeClient sets up the Redis client based on configuration
func (m *Manager) initializeClient() {
	if !m.config.Enabled {
		return // Skip initialization if cache is disabled
	}

	if m.config.IsClusterMode() {
		m.clusterClient = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           m.config.Cluster.Addresses,
			Username:        m.config.Cluster.Username,
			Password:        m.config.Cluster.Password,
			PoolSize:        m.config.PoolSize,
			MinIdleConns:    m.config.MinIdleConns,
			ConnMaxLifetime: m.config.MaxConnAge,
			PoolTimeout:     m.config.PoolTimeout,
			ConnMaxIdleTime: m.config.IdleTimeout,
			ReadTimeout:     m.config.ReadTimeout,
			WriteTimeout:    m.config.WriteTimeout,
			DialTimeout:     m.config.DialTimeout,
		})
		m.client = m.clusterClient
		return
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:            m.config.GetAddr(),
		Password:        m.config.Password,
		DB:              m.config.Database,
		PoolSize:        m.config.PoolSize,
		MinIdleConns:    m.config.MinIdleConns,
		ConnMaxLifetime: m.config.MaxConnAge,
		PoolTimeout:     m.config.PoolTimeout,
		ConnMaxIdleTime: m.config.IdleTimeout,
		ReadTimeout:     m.config.ReadTimeout,
		WriteTimeout:    m.config.WriteTimeout,
		DialTimeout:     m.config.DialTimeout,
	})
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Enabled reports whether cache operations reach Redis
func (m *Manager) Enabled() bool {
	return m.config.Enabled && m.client != nil
}

// Close closes the Redis connection
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Ping tests the Redis connection
// Returns nil if cache is disabled (not an error condition)
// Returns ErrConnectionFailed if ping fails
func (m *Manager) Ping(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// checkClient validates that cache is enabled and client is initialized
func (m *Manager) checkClient() error {
	if !m.config.Enabled {
		return ErrCacheDisabled
	}
	if m.client == nil {
		return ErrClientNotInitialized
	}
	return nil
}

// EntityKey builds the cache key of one entity row, e.g. "prefetch4go:authors:42"
func (m *Manager) EntityKey(table string, id int64) string {
	return strings.Join([]string{m.config.prefix(), table, strconv.FormatInt(id, 10)}, cacheKeySeparator)
}

// ============================================================================
// Single key operations
// ============================================================================

// Get retrieves a value from cache
// Returns ErrKeyNotFound if the key does not exist
func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := m.client.Get(ctx, key).Bytes()
	m.metrics.RecordGet(time.Since(start))

	if errors.Is(err, redis.Nil) {
		m.metrics.RecordCacheMiss(1)
		return nil, ErrKeyNotFound
	}
	if err != nil {
		m.metrics.RecordCacheError()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	m.metrics.RecordCacheHit(1)
	return data, nil
}

// Set stores a value with the default TTL
func (m *Manager) Set(ctx context.Context, key string, value []byte) error {
	return m.SetWithTTL(ctx, key, value, m.config.DefaultTTL)
}

// SetWithTTL stores a value with a custom TTL
func (m *Manager) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.checkClient(); err != nil {
		return err
	}

	start := time.Now()
	err := m.client.Set(ctx, key, value, ttl).Err()
	m.metrics.RecordSet(time.Since(start))
	if err != nil {
		m.metrics.RecordCacheError()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	if err := m.checkClient(); err != nil {
		return false, err
	}

	n, err := m.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes a key from cache
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.DeleteKeys(ctx, []string{key})
}

// DeleteKeys removes multiple keys from cache
func (m *Manager) DeleteKeys(ctx context.Context, keys []string) error {
	if err := m.checkClient(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	// DEL with several keys is rejected across slots in cluster mode
	pipe := m.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.metrics.RecordCacheError()
		return fmt.Errorf("redis delete: %w", err)
	}
	m.metrics.RecordDelete()
	return nil
}

// ============================================================================
// Batch operations
// ============================================================================

// GetMany fetches several keys in one pipelined round trip.
// Missing keys are absent from the returned map.
func (m *Manager) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := m.checkClient(); err != nil {
		return nil, err
	}
	found := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	start := time.Now()
	pipe := m.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	_, err := pipe.Exec(ctx)
	m.metrics.RecordGet(time.Since(start))
	if err != nil && !errors.Is(err, redis.Nil) {
		m.metrics.RecordCacheError()
		return nil, fmt.Errorf("redis get many: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			m.metrics.RecordCacheError()
			return nil, fmt.Errorf("redis get %s: %w", keys[i], err)
		}
		found[keys[i]] = data
	}

	m.metrics.RecordCacheHit(len(found))
	m.metrics.RecordCacheMiss(len(keys) - len(found))
	return found, nil
}

// SetMany stores several values with the default TTL in one pipelined round trip
func (m *Manager) SetMany(ctx context.Context, values map[string][]byte) error {
	if err := m.checkClient(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	start := time.Now()
	pipe := m.client.Pipeline()
	for key, value := range values {
		pipe.Set(ctx, key, value, m.config.DefaultTTL)
	}
	_, err := pipe.Exec(ctx)
	m.metrics.RecordSet(time.Since(start))
	if err != nil {
		m.metrics.RecordCacheError()
		return fmt.Errorf("redis set many: %w", err)
	}
	return nil
}

// ============================================================================
// Typed values
// ============================================================================

// Marshal encodes v with msgpack
func Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// Unmarshal decodes msgpack data into target
func Unmarshal(data []byte, target any) error {
	if err := msgpack.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return nil
}

// SetValue stores v encoded with msgpack
func (m *Manager) SetValue(ctx context.Context, key string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, data)
}

// GetValue loads a msgpack encoded value into target
func (m *Manager) GetValue(ctx context.Context, key string, target any) error {
	data, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	return Unmarshal(data, target)
}

// GetMetrics returns current cache metrics
func (m *Manager) GetMetrics() MetricsSnapshot {
	return m.metrics.GetSnapshot()
}

// ResetMetrics resets all metrics counters
func (m *Manager) ResetMetrics() {
	m.metrics.Reset()
}
