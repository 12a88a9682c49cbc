package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Resolver resolves the relations of records processed in chunks, reusing
// entities fetched for earlier chunks from a bounded LRU cache per model.
//
// Resolver is not lazy: New fetches every model configured with PrefetchAll.
// ProcessChunk calls are serialized; a chunk always runs to completion (or
// failure) before the next one touches the caches.
type Resolver struct {
	mu sync.Mutex

	configs     []*Config
	byModel     map[string]*Config
	entities    map[string]*Cache[int64, Entity]
	bridges     map[uint64]*bridgeCache
	bridgeSizes map[uint64]int

	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics shares a metrics instance, e.g. across resolvers
func WithMetrics(metrics *Metrics) Option {
	return func(r *Resolver) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// New validates configs and creates a resolver, preloading the caches of
// configs with PrefetchAll set
func New(ctx context.Context, configs []Config, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		byModel:     make(map[string]*Config, len(configs)),
		entities:    make(map[string]*Cache[int64, Entity], len(configs)),
		bridges:     make(map[uint64]*bridgeCache),
		bridgeSizes: make(map[uint64]int),
		metrics:     NewMetrics(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range configs {
		cfg := configs[i]
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byModel[cfg.Model]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, cfg.Model)
		}

		cache, err := NewCache[int64, Entity](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		cache.onEvict = r.metrics.RecordEviction

		r.configs = append(r.configs, &cfg)
		r.byModel[cfg.Model] = &cfg
		r.entities[cfg.Model] = cache
	}

	for _, cfg := range r.configs {
		if !cfg.PrefetchAll {
			continue
		}
		if err := r.preload(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// preload seeds the cache of cfg with up to CacheSize entities
func (r *Resolver) preload(ctx context.Context, cfg *Config) error {
	// the cache cannot hold more than its size anyway
	entities, err := cfg.Scope().FetchAll(ctx, cfg.CacheSize)
	if err != nil {
		return err
	}
	r.metrics.RecordFetch(len(entities))

	cache := r.entities[cfg.Model]
	for _, entity := range entities {
		cache.Add(entity.PrimaryKey(), entity)
	}

	r.logger.DebugContext(ctx, "preloaded model",
		slog.String("model", cfg.Model),
		slog.Int("entities", len(entities)))
	return nil
}

// ProcessChunk binds the configured relations of every record in records.
//
// Only ids missing from the caches are fetched, with one bulk fetch per
// model. Repository errors are returned unchanged; the caches keep whatever
// was stored before the failure.
func (r *Resolver) ProcessChunk(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.RecordChunk()
	// caches grown while fetching go back to their configured size once the
	// chunk is bound, evicting in the recency order binding left behind
	defer r.restoreCapacities()

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.PrimaryKey()
	}

	need := make([]map[int64]struct{}, len(r.configs))
	for i, cfg := range r.configs {
		set, err := r.neededIDs(ctx, cfg, records, ids)
		if err != nil {
			return err
		}
		need[i] = set
	}

	for i, cfg := range r.configs {
		if err := r.fetchMissing(ctx, cfg, need[i]); err != nil {
			return err
		}
	}

	for _, rec := range records {
		for _, cfg := range r.configs {
			var err error
			if cfg.ManyToMany {
				err = r.bindCollection(cfg, rec)
			} else {
				err = r.bindForeignKeys(cfg, rec)
			}
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// neededIDs returns the ids of cfg's model referenced by the chunk
func (r *Resolver) neededIDs(ctx context.Context, cfg *Config, records []Record, ids []int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{})

	if cfg.ManyToMany {
		bridge, err := r.resolveBridge(ctx, ids, cfg)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			targets, _ := bridge.Peek(id)
			for _, target := range targets {
				set[target] = struct{}{}
			}
		}
		return set, nil
	}

	for _, rec := range records {
		for _, attr := range cfg.Attributes {
			target, ok, err := ResolvePath(rec, attr)
			if err != nil {
				return nil, err
			}
			if ok {
				set[target.ID] = struct{}{}
			}
		}
	}
	return set, nil
}

// fetchMissing fetches the needed ids not cached yet in one call
func (r *Resolver) fetchMissing(ctx context.Context, cfg *Config, need map[int64]struct{}) error {
	cache := r.entities[cfg.Model]

	missing := make([]int64, 0, len(need))
	for id := range need {
		if !cache.Contains(id) {
			missing = append(missing, id)
		}
	}
	r.metrics.RecordLookup(len(need)-len(missing), len(missing))
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)

	fetched, err := cfg.Scope().FetchByIDs(ctx, missing)
	if err != nil {
		return err
	}
	r.metrics.RecordFetch(len(fetched))

	// make room first: inserting must not evict entries this chunk still binds
	cache.Grow(len(fetched))

	added := 0
	for _, id := range missing {
		if entity, ok := fetched[id]; ok {
			cache.Add(id, entity)
			added++
		}
	}
	if dangling := len(missing) - added; dangling > 0 {
		r.metrics.RecordDangling(dangling)
	}

	r.logger.DebugContext(ctx, "fetched missing entities",
		slog.String("model", cfg.Model),
		slog.Int("needed", len(need)),
		slog.Int("missing", len(missing)),
		slog.Int("fetched", added))
	return nil
}

func (r *Resolver) bindForeignKeys(cfg *Config, rec Record) error {
	cache := r.entities[cfg.Model]

	for _, attr := range cfg.Attributes {
		target, ok, err := ResolvePath(rec, attr)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		entity, ok := cache.Get(target.ID)
		if !ok {
			continue
		}

		// for "invoice__subsidiary" this sets subsidiary on the invoice
		if err := target.Owner.SetRelated(target.Name, entity); err != nil {
			return fmt.Errorf("bind %q: %w", attr, err)
		}
	}
	return nil
}

func (r *Resolver) bindCollection(cfg *Config, rec Record) error {
	cache := r.entities[cfg.Model]
	targets, _ := r.bridges[cfg.bridgeKey()].Get(rec.PrimaryKey())

	related := make([]Entity, 0, len(targets))
	for _, id := range targets {
		if entity, ok := cache.Get(id); ok {
			related = append(related, entity)
		}
	}

	for _, attr := range cfg.Attributes {
		existing, err := rec.Collection(attr)
		if err != nil {
			return fmt.Errorf("bind %q: %w", attr, err)
		}
		if err := rec.SetCollection(attr, mergeEntities(existing, related)); err != nil {
			return fmt.Errorf("bind %q: %w", attr, err)
		}
	}
	return nil
}

// mergeEntities merges related into existing, de-duplicated by primary key.
// A cached entity replaces an existing one with the same key.
func mergeEntities(existing, related []Entity) []Entity {
	merged := make([]Entity, 0, len(existing)+len(related))
	index := make(map[int64]int, len(existing)+len(related))

	for _, entity := range existing {
		if _, dup := index[entity.PrimaryKey()]; dup {
			continue
		}
		index[entity.PrimaryKey()] = len(merged)
		merged = append(merged, entity)
	}
	for _, entity := range related {
		if i, ok := index[entity.PrimaryKey()]; ok {
			merged[i] = entity
			continue
		}
		index[entity.PrimaryKey()] = len(merged)
		merged = append(merged, entity)
	}
	return merged
}

func (r *Resolver) restoreCapacities() {
	for _, cfg := range r.configs {
		r.entities[cfg.Model].Resize(cfg.CacheSize)
	}
	for key, cache := range r.bridges {
		cache.Resize(r.bridgeSizes[key])
	}
}

// ============================================================================
// INTROSPECTION
// ============================================================================

// Cached returns the cached ids of model from least to most recently used
func (r *Resolver) Cached(model string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache, ok := r.entities[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return cache.Keys(), nil
}

// Lookup returns the cached entity of model with id without touching its recency
func (r *Resolver) Lookup(model string, id int64) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache, ok := r.entities[model]
	if !ok {
		return nil, false
	}
	return cache.Peek(id)
}

// Capacity returns the current cache capacity of model, or 0 if unknown
func (r *Resolver) Capacity(model string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cache, ok := r.entities[model]; ok {
		return cache.Capacity()
	}
	return 0
}

// Metrics returns a snapshot of the resolver counters
func (r *Resolver) Metrics() MetricsSnapshot {
	return r.metrics.GetSnapshot()
}
