package repository

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ammar0144/prefetch4go/pkg/prefetch"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Entity is the contract GORM models implement to be cached by the resolver
type Entity = prefetch.Entity

// EntityPtr constrains P to *T implementing Entity, so repositories can
// allocate T values and still call the pointer-receiver Entity methods
type EntityPtr[T any] interface {
	*T
	Entity
}

// tableNameOf returns the table name declared by T.
// Panics when TableName() is empty, the same way a broken model fails at
// repository construction time.
func tableNameOf[T any, P EntityPtr[T]]() string {
	var model T
	tableName := P(&model).TableName()
	if tableName == "" {
		panic(fmt.Sprintf("entity type %T returned empty TableName(), Entity interface not properly implemented", model))
	}
	return tableName
}

// parseSchema runs GORM's schema parser on model
func parseSchema(gormDB *gorm.DB, model interface{}) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: gormDB}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("parse schema of %T: %w", model, err)
	}
	return stmt.Schema, nil
}

// extractPrimaryKeyName extracts the primary key column from entity type
// Uses reflection to find the field tagged as primary key or defaults to "id"
func extractPrimaryKeyName(entityType reflect.Type) string {
	if entityType.Kind() == reflect.Ptr {
		entityType = entityType.Elem()
	}

	// Look for field with gorm:"primaryKey" tag
	for i := 0; i < entityType.NumField(); i++ {
		field := entityType.Field(i)
		gormTag := field.Tag.Get("gorm")

		if strings.Contains(gormTag, "primaryKey") || strings.Contains(gormTag, "primary_key") {
			return schema.NamingStrategy{}.ColumnName("", field.Name)
		}
	}

	return "id"
}

// extractPrimaryKeyNameFromDB tries to obtain the primary key column name using GORM schema
// Returns empty string if it cannot be determined
func extractPrimaryKeyNameFromDB(gormDB *gorm.DB, model interface{}) string {
	if gormDB == nil || model == nil {
		return ""
	}

	s, err := parseSchema(gormDB, model)
	if err != nil || s == nil {
		return ""
	}

	if len(s.PrimaryFields) > 0 {
		if f := s.PrimaryFields[0]; f != nil {
			return f.DBName
		}
	}

	return ""
}
