package repository

import (
	"context"

	"github.com/ammar0144/prefetch4go/pkg/prefetch"
	"github.com/ammar0144/prefetch4go/pkg/redis"
)

// Store is the second-level cache used by CachedRepository.
// *redis.Manager implements it.
type Store interface {
	// EntityKey builds the key of one cached row
	EntityKey(table string, id int64) string

	// GetMany returns the values found; missing keys are absent
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany stores values with the store's default TTL
	SetMany(ctx context.Context, values map[string][]byte) error

	// DeleteKeys removes keys
	DeleteKeys(ctx context.Context, keys []string) error
}

var (
	_ Store = (*redis.Manager)(nil)

	_ prefetch.Repository       = (*GormRepository[entityStub, *entityStub])(nil)
	_ prefetch.Sealer           = (*GormRepository[entityStub, *entityStub])(nil)
	_ prefetch.Repository       = (*CachedRepository[entityStub, *entityStub])(nil)
	_ prefetch.Sealer           = (*CachedRepository[entityStub, *entityStub])(nil)
	_ prefetch.BridgeRepository = (*GormBridge)(nil)
)

// entityStub only exists for the compile-time checks above
type entityStub struct{}

func (entityStub) TableName() string { return "" }
func (entityStub) PrimaryKey() int64 { return 0 }
