package prefetch

import "context"

// Entity is a resolved object the resolver can cache
type Entity interface {
	// TableName identifies the entity type; one Config per table name
	TableName() string

	// PrimaryKey returns the id the entity is cached under
	PrimaryKey() int64
}

// Relations exposes the named relations of a model without reflection.
// Records and the intermediate objects of nested paths implement it.
type Relations interface {
	// ForeignKey returns the id backing relation name. ok is false when the
	// foreign key is NULL.
	ForeignKey(name string) (id int64, ok bool, err error)

	// Related returns the object currently loaded for relation name, or nil
	Related(name string) (Relations, error)

	// SetRelated assigns a resolved entity to relation name
	SetRelated(name string, entity Entity) error
}

// Record is a unit of a chunk to be enriched
type Record interface {
	Relations

	// PrimaryKey returns the record id, used as the source id of many-to-many bridges
	PrimaryKey() int64

	// Collection returns the entities currently assigned to many-to-many relation name
	Collection(name string) ([]Entity, error)

	// SetCollection replaces the entities assigned to many-to-many relation name
	SetCollection(name string, entities []Entity) error
}

// Repository fetches one entity type in bulk.
// The fetch scope (filters, preloads) is part of the repository value.
type Repository interface {
	// FetchByIDs returns at most one entity per id; unknown ids are absent
	FetchByIDs(ctx context.Context, ids []int64) (map[int64]Entity, error)

	// FetchAll returns up to limit entities, used for eager preloading
	FetchAll(ctx context.Context, limit int) ([]Entity, error)
}

// Sealer is implemented by repositories that can hand out a restricted,
// reusable copy of themselves for bulk fetches
type Sealer interface {
	Seal() Repository
}

// BridgePair is one row of a many-to-many join relation
type BridgePair struct {
	SourceID int64
	TargetID int64
}

// BridgeRepository queries a many-to-many join relation
type BridgeRepository interface {
	// TableName identifies the join relation
	TableName() string

	// FetchBridgePairs returns (source, target) pairs whose source is in sourceIDs
	FetchBridgePairs(ctx context.Context, sourceField, targetField string, sourceIDs []int64) ([]BridgePair, error)
}
