package repository

import (
	"fmt"
	"testing"

	"github.com/ammar0144/prefetch4go/pkg/db"
	"github.com/ammar0144/prefetch4go/pkg/prefetch"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
)

type Author struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func (*Author) TableName() string   { return "authors" }
func (a *Author) PrimaryKey() int64 { return a.ID }

type Category struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func (*Category) TableName() string   { return "categories" }
func (c *Category) PrimaryKey() int64 { return c.ID }

type Book struct {
	ID         int64 `gorm:"primaryKey"`
	Title      string
	AuthorID   *int64
	Author     *Author    `gorm:"foreignKey:AuthorID"`
	Categories []Category `gorm:"many2many:book_categories"`
}

func (*Book) TableName() string   { return "books" }
func (b *Book) PrimaryKey() int64 { return b.ID }

func (b *Book) ForeignKey(name string) (int64, bool, error) {
	if name != "author" {
		return 0, false, fmt.Errorf("book.%s: %w", name, prefetch.ErrUnknownRelation)
	}
	if b.AuthorID == nil {
		return 0, false, nil
	}
	return *b.AuthorID, true, nil
}

func (b *Book) Related(name string) (prefetch.Relations, error) {
	return nil, fmt.Errorf("book.%s: %w", name, prefetch.ErrUnknownRelation)
}

func (b *Book) SetRelated(name string, entity prefetch.Entity) error {
	if name != "author" {
		return fmt.Errorf("book.%s: %w", name, prefetch.ErrUnknownRelation)
	}
	b.Author = entity.(*Author)
	return nil
}

func (b *Book) Collection(name string) ([]prefetch.Entity, error) {
	if name != "categories" {
		return nil, fmt.Errorf("book.%s: %w", name, prefetch.ErrUnknownRelation)
	}
	entities := make([]prefetch.Entity, len(b.Categories))
	for i := range b.Categories {
		entities[i] = &b.Categories[i]
	}
	return entities, nil
}

func (b *Book) SetCollection(name string, entities []prefetch.Entity) error {
	if name != "categories" {
		return fmt.Errorf("book.%s: %w", name, prefetch.ErrUnknownRelation)
	}
	b.Categories = make([]Category, len(entities))
	for i, entity := range entities {
		b.Categories[i] = *entity.(*Category)
	}
	return nil
}

func newMockManager(t *testing.T) (*db.Manager, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := db.DefaultConfig()
	cfg.Logging.Level = "silent"

	manager, err := db.NewManagerWithDialector(
		cfg,
		mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
	)
	require.NoError(t, err)
	return manager, mock
}

func int64Ptr(v int64) *int64 { return &v }
