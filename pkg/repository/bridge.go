package repository

import (
	"context"
	"fmt"

	"github.com/ammar0144/prefetch4go/pkg/db"
	"github.com/ammar0144/prefetch4go/pkg/prefetch"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// GormBridge reads (source, target) pairs from a many-to-many join table
type GormBridge struct {
	db          *gorm.DB
	dbManager   *db.Manager
	table       string
	sourceField string
	targetField string
}

// NewGormBridge creates a bridge over the join table table.
// Column names are passed per query by the resolver configuration.
func NewGormBridge(dbManager *db.Manager, table string) *GormBridge {
	return &GormBridge{
		db:        dbManager.DB(),
		dbManager: dbManager,
		table:     table,
	}
}

// NewGormBridgeFor derives the join table and its columns from the GORM
// many2many relationship field of model, e.g.
// NewGormBridgeFor(manager, &Book{}, "Categories")
func NewGormBridgeFor(dbManager *db.Manager, model interface{}, field string) (*GormBridge, error) {
	s, err := parseSchema(dbManager.DB(), model)
	if err != nil {
		return nil, err
	}

	rel, ok := s.Relationships.Relations[field]
	if !ok || rel.Type != schema.Many2Many || rel.JoinTable == nil {
		return nil, fmt.Errorf("%s.%s is not a many2many relationship", s.Name, field)
	}

	bridge := NewGormBridge(dbManager, rel.JoinTable.Table)
	for _, ref := range rel.References {
		if ref.OwnPrimaryKey {
			bridge.sourceField = ref.ForeignKey.DBName
		} else {
			bridge.targetField = ref.ForeignKey.DBName
		}
	}
	if bridge.sourceField == "" || bridge.targetField == "" {
		return nil, fmt.Errorf("%s.%s: cannot determine join table columns", s.Name, field)
	}
	return bridge, nil
}

// TableName returns the join table
func (b *GormBridge) TableName() string {
	return b.table
}

// Fields returns the join table columns derived by NewGormBridgeFor
func (b *GormBridge) Fields() (sourceField, targetField string) {
	return b.sourceField, b.targetField
}

// FetchBridgePairs returns the rows of the join table whose sourceField is in
// sourceIDs, ordered by source then target
func (b *GormBridge) FetchBridgePairs(ctx context.Context, sourceField, targetField string, sourceIDs []int64) ([]prefetch.BridgePair, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}

	query, args := db.NewBuilder(b.table).
		Select(sourceField, targetField).
		Where(sourceField, db.In, sourceIDs).
		OrderBy(sourceField, false).
		OrderBy(targetField, false).
		BuildSelect()

	ctx, cancel := b.dbManager.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := b.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var pairs []prefetch.BridgePair
	for rows.Next() {
		var pair prefetch.BridgePair
		if err := rows.Scan(&pair.SourceID, &pair.TargetID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", b.table, err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return pairs, nil
}
