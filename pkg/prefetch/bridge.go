package prefetch

import (
	"context"
	"log/slog"
	"slices"
)

// bridgeCache maps source ids to target ids for one join relation
type bridgeCache = Cache[int64, []int64]

// resolveBridge makes sure every id in ids has an entry in the bridge cache
// of cfg, querying the join relation once for the ids not cached yet.
//
// Ids without join rows get an empty entry so they are not queried again
// while cached. The cache is grown before inserting, so entries needed by the
// current chunk survive until capacities are restored.
func (r *Resolver) resolveBridge(ctx context.Context, ids []int64, cfg *Config) (*bridgeCache, error) {
	key := cfg.bridgeKey()
	cache, ok := r.bridges[key]
	if !ok {
		var err error
		if cache, err = NewCache[int64, []int64](cfg.CacheSize); err != nil {
			return nil, err
		}
		cache.onEvict = r.metrics.RecordEviction
		r.bridges[key] = cache
		r.bridgeSizes[key] = cfg.CacheSize
	}

	unseen := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !cache.Contains(id) {
			unseen = append(unseen, id)
		}
	}
	if len(unseen) == 0 {
		r.metrics.RecordBridgeHit()
		return cache, nil
	}
	slices.Sort(unseen)

	pairs, err := cfg.Through.FetchBridgePairs(ctx, cfg.SourceField, cfg.TargetField, unseen)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordBridgeQuery()
	r.logger.DebugContext(ctx, "bridge query",
		slog.String("through", cfg.Through.TableName()),
		slog.Int("sources", len(unseen)),
		slog.Int("pairs", len(pairs)))

	mapping := make(map[int64][]int64, len(unseen))
	for _, pair := range pairs {
		targets, ok := mapping[pair.SourceID]
		if !ok {
			existing, _ := cache.Peek(pair.SourceID)
			targets = slices.Clone(existing)
		}
		mapping[pair.SourceID] = append(targets, pair.TargetID)
	}

	cache.Grow(len(unseen))
	for _, id := range unseen {
		targets := mapping[id]
		if targets == nil {
			targets = []int64{}
		}
		cache.Add(id, targets)
	}

	return cache, nil
}
