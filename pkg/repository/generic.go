package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ammar0144/prefetch4go/pkg/db"
	"github.com/ammar0144/prefetch4go/pkg/prefetch"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository bulk-fetches one GORM model by primary key.
// The fetch scope (conditions, preloads, scopes) is carried by the value:
// every chaining method returns a new repository and leaves the receiver
// untouched.
type GormRepository[T any, P EntityPtr[T]] struct {
	db         *gorm.DB
	dbManager  *db.Manager
	tableName  string
	primaryKey string
}

// NewGormRepository creates a repository for model T, e.g.
// NewGormRepository[Author](manager)
func NewGormRepository[T any, P EntityPtr[T]](dbManager *db.Manager) *GormRepository[T, P] {
	tableName := tableNameOf[T, P]()
	gormDB := dbManager.DB()

	primaryKey := extractPrimaryKeyNameFromDB(gormDB, P(new(T)))
	if primaryKey == "" {
		primaryKey = extractPrimaryKeyName(reflect.TypeOf((*T)(nil)).Elem())
	}

	return &GormRepository[T, P]{
		db:         gormDB.Session(&gorm.Session{}),
		dbManager:  dbManager,
		tableName:  tableName,
		primaryKey: primaryKey,
	}
}

// TableName returns the table of T
func (r *GormRepository[T, P]) TableName() string {
	return r.tableName
}

// PrimaryKey returns the primary key column of T
func (r *GormRepository[T, P]) PrimaryKey() string {
	return r.primaryKey
}

// ============================================================================
// FETCH SCOPE
// ============================================================================

// with returns a copy of r running on tx
func (r *GormRepository[T, P]) with(tx *gorm.DB) *GormRepository[T, P] {
	clone := *r
	clone.db = tx.Session(&gorm.Session{})
	return &clone
}

// Where restricts fetched rows, e.g. Where("active = ?", true)
func (r *GormRepository[T, P]) Where(query interface{}, args ...interface{}) *GormRepository[T, P] {
	return r.with(r.db.Where(query, args...))
}

// Preload loads associations of every fetched row
func (r *GormRepository[T, P]) Preload(associations ...string) *GormRepository[T, P] {
	tx := r.db
	for _, association := range associations {
		tx = tx.Preload(association)
	}
	return r.with(tx)
}

// Scopes applies GORM scopes to every fetch
func (r *GormRepository[T, P]) Scopes(funcs ...func(*gorm.DB) *gorm.DB) *GormRepository[T, P] {
	return r.with(r.db.Scopes(funcs...))
}

// Seal returns a copy that selects the model's declared columns explicitly
// instead of "*", so columns added to the table later are never loaded.
func (r *GormRepository[T, P]) Seal() prefetch.Repository {
	clone := *r
	clone.db = r.db.Session(&gorm.Session{QueryFields: true})
	return &clone
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

// FetchByIDs loads the rows whose primary key is in ids with one query.
// Ids without a row are absent from the result.
func (r *GormRepository[T, P]) FetchByIDs(ctx context.Context, ids []int64) (map[int64]prefetch.Entity, error) {
	found := make(map[int64]prefetch.Entity, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := r.dbManager.WithQueryTimeout(ctx)
	defer cancel()

	var rows []T
	if err := r.db.WithContext(ctx).Find(&rows, ids).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	for i := range rows {
		entity := P(&rows[i])
		found[entity.PrimaryKey()] = entity
	}
	return found, nil
}

// FetchAll loads up to limit rows ordered by primary key; limit <= 0 loads every row
func (r *GormRepository[T, P]) FetchAll(ctx context.Context, limit int) ([]prefetch.Entity, error) {
	ctx, cancel := r.dbManager.WithQueryTimeout(ctx)
	defer cancel()

	tx := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: r.primaryKey}})
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	entities := make([]prefetch.Entity, len(rows))
	for i := range rows {
		entities[i] = P(&rows[i])
	}
	return entities, nil
}
