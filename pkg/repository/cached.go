package repository

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/ammar0144/prefetch4go/pkg/prefetch"
	"github.com/ammar0144/prefetch4go/pkg/redis"

	"github.com/cespare/xxhash/v2"
)

// CachedRepository is a read-through decorator: rows are looked up in the
// second-level store first and only the remaining ids reach the base
// repository. Fetched rows are written back with the store's TTL.
//
// Store failures never fail a fetch; the decorator falls back to the base.
type CachedRepository[T any, P EntityPtr[T]] struct {
	base   prefetch.Repository
	store  Store
	table  string
	logger *slog.Logger
}

// CachedOption configures a CachedRepository
type CachedOption func(*cachedOptions)

type cachedOptions struct {
	namespace string
	logger    *slog.Logger
}

// WithNamespace separates the keys of differently scoped repositories of the
// same model, e.g. a filtered and an unfiltered one
func WithNamespace(scope string) CachedOption {
	return func(o *cachedOptions) {
		o.namespace = scope
	}
}

// WithCacheLogger sets the logger for store failures
func WithCacheLogger(logger *slog.Logger) CachedOption {
	return func(o *cachedOptions) {
		o.logger = logger
	}
}

// NewCachedRepository wraps base, e.g.
// NewCachedRepository[Author](NewGormRepository[Author](dbm), redisManager)
func NewCachedRepository[T any, P EntityPtr[T]](base prefetch.Repository, store Store, opts ...CachedOption) *CachedRepository[T, P] {
	o := cachedOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	table := tableNameOf[T, P]()
	if o.namespace != "" {
		table += ":" + strconv.FormatUint(xxhash.Sum64String(o.namespace), 16)
	}

	return &CachedRepository[T, P]{
		base:   base,
		store:  store,
		table:  table,
		logger: o.logger,
	}
}

// FetchByIDs serves ids from the store, fetching the rest from the base repository
func (r *CachedRepository[T, P]) FetchByIDs(ctx context.Context, ids []int64) (map[int64]prefetch.Entity, error) {
	found := make(map[int64]prefetch.Entity, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.store.EntityKey(r.table, id)
	}

	cached, err := r.store.GetMany(ctx, keys)
	if err != nil && !redis.IsCacheDisabled(err) {
		r.logger.WarnContext(ctx, "entity store read failed", slog.String("table", r.table), slog.Any("error", err))
	}

	missing := make([]int64, 0, len(ids))
	for i, id := range ids {
		data, ok := cached[keys[i]]
		if !ok {
			missing = append(missing, id)
			continue
		}
		entity := P(new(T))
		if err := redis.Unmarshal(data, entity); err != nil {
			r.logger.WarnContext(ctx, "dropping undecodable entity", slog.String("key", keys[i]), slog.Any("error", err))
			missing = append(missing, id)
			continue
		}
		found[id] = entity
	}
	if len(missing) == 0 {
		return found, nil
	}

	fetched, err := r.base.FetchByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, entity := range fetched {
		found[id] = entity
	}
	r.write(ctx, slices.Collect(maps.Values(fetched)))

	return found, nil
}

// FetchAll always reads the base repository and writes the rows to the store
func (r *CachedRepository[T, P]) FetchAll(ctx context.Context, limit int) ([]prefetch.Entity, error) {
	entities, err := r.base.FetchAll(ctx, limit)
	if err != nil {
		return nil, err
	}
	r.write(ctx, entities)
	return entities, nil
}

// Seal seals the base repository when it supports it
func (r *CachedRepository[T, P]) Seal() prefetch.Repository {
	sealer, ok := r.base.(prefetch.Sealer)
	if !ok {
		return r
	}
	clone := *r
	clone.base = sealer.Seal()
	return &clone
}

// Invalidate removes the cached rows of ids
func (r *CachedRepository[T, P]) Invalidate(ctx context.Context, ids ...int64) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.store.EntityKey(r.table, id)
	}
	err := r.store.DeleteKeys(ctx, keys)
	if redis.IsCacheDisabled(err) {
		return nil
	}
	return err
}

// write stores entities, logging failures
func (r *CachedRepository[T, P]) write(ctx context.Context, entities []prefetch.Entity) {
	if len(entities) == 0 {
		return
	}

	values := make(map[string][]byte, len(entities))
	for _, entity := range entities {
		data, err := redis.Marshal(entity)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping unencodable entity", slog.String("table", r.table), slog.Any("error", err))
			continue
		}
		values[r.store.EntityKey(r.table, entity.PrimaryKey())] = data
	}

	if err := r.store.SetMany(ctx, values); err != nil && !redis.IsCacheDisabled(err) {
		r.logger.WarnContext(ctx, "entity store write failed", slog.String("table", r.table), slog.Any("error", err))
	}
}
