package prefetch

import (
	"context"
	"fmt"
	"slices"
)

type author struct {
	ID   int64
	Name string
}

func (a *author) TableName() string { return "authors" }
func (a *author) PrimaryKey() int64 { return a.ID }

type publisher struct {
	ID      int64
	Name    string
	Country string
}

func (p *publisher) TableName() string { return "publishers" }
func (p *publisher) PrimaryKey() int64 { return p.ID }

type category struct {
	ID   int64
	Name string
}

func (c *category) TableName() string { return "categories" }
func (c *category) PrimaryKey() int64 { return c.ID }

type book struct {
	ID           int64
	Title        string
	AuthorID     int64
	Author       *author
	TranslatorID *int64
	Translator   *author
	PublisherID  int64
	Publisher    *publisher
	Categories   []Entity
}

func (b *book) TableName() string { return "books" }
func (b *book) PrimaryKey() int64 { return b.ID }

func (b *book) ForeignKey(name string) (int64, bool, error) {
	switch name {
	case "author":
		return b.AuthorID, b.AuthorID != 0, nil
	case "translator":
		if b.TranslatorID == nil {
			return 0, false, nil
		}
		return *b.TranslatorID, true, nil
	case "publisher":
		return b.PublisherID, b.PublisherID != 0, nil
	}
	return 0, false, fmt.Errorf("%w: books.%s", ErrUnknownRelation, name)
}

func (b *book) Related(name string) (Relations, error) {
	return nil, fmt.Errorf("%w: books.%s is not traversable", ErrUnknownRelation, name)
}

func (b *book) SetRelated(name string, entity Entity) error {
	switch name {
	case "author", "translator":
		a, ok := entity.(*author)
		if !ok {
			return fmt.Errorf("books.%s: unexpected %T", name, entity)
		}
		if name == "author" {
			b.Author = a
		} else {
			b.Translator = a
		}
		return nil
	case "publisher":
		p, ok := entity.(*publisher)
		if !ok {
			return fmt.Errorf("books.publisher: unexpected %T", entity)
		}
		b.Publisher = p
		return nil
	}
	return fmt.Errorf("%w: books.%s", ErrUnknownRelation, name)
}

func (b *book) Collection(name string) ([]Entity, error) {
	if name != "categories" {
		return nil, fmt.Errorf("%w: books.%s", ErrUnknownRelation, name)
	}
	return b.Categories, nil
}

func (b *book) SetCollection(name string, entities []Entity) error {
	if name != "categories" {
		return fmt.Errorf("%w: books.%s", ErrUnknownRelation, name)
	}
	b.Categories = entities
	return nil
}

func (b *book) categoryIDs() []int64 {
	ids := make([]int64, 0, len(b.Categories))
	for _, c := range b.Categories {
		ids = append(ids, c.PrimaryKey())
	}
	slices.Sort(ids)
	return ids
}

type review struct {
	ID     int64
	BookID *int64
	Book   *book
	Rating int
}

func (r *review) PrimaryKey() int64 { return r.ID }

func (r *review) ForeignKey(name string) (int64, bool, error) {
	if name != "book" {
		return 0, false, fmt.Errorf("%w: reviews.%s", ErrUnknownRelation, name)
	}
	if r.BookID == nil {
		return 0, false, nil
	}
	return *r.BookID, true, nil
}

func (r *review) Related(name string) (Relations, error) {
	if name != "book" {
		return nil, fmt.Errorf("%w: reviews.%s", ErrUnknownRelation, name)
	}
	if r.Book == nil {
		return nil, nil
	}
	return r.Book, nil
}

func (r *review) SetRelated(name string, entity Entity) error {
	return fmt.Errorf("%w: reviews.%s", ErrUnknownRelation, name)
}

func (r *review) Collection(name string) ([]Entity, error) {
	return nil, fmt.Errorf("%w: reviews.%s", ErrUnknownRelation, name)
}

func (r *review) SetCollection(name string, _ []Entity) error {
	return fmt.Errorf("%w: reviews.%s", ErrUnknownRelation, name)
}

// memRepository is an in-memory Repository counting its calls
type memRepository struct {
	rows      map[int64]Entity
	order     []int64
	calls     int
	allCalls  int
	allLimit  int
	requested [][]int64
	sealed    int
	err       error
}

func newMemRepository(entities ...Entity) *memRepository {
	repo := &memRepository{rows: make(map[int64]Entity)}
	for _, e := range entities {
		repo.rows[e.PrimaryKey()] = e
		repo.order = append(repo.order, e.PrimaryKey())
	}
	return repo
}

func (m *memRepository) FetchByIDs(_ context.Context, ids []int64) (map[int64]Entity, error) {
	m.calls++
	m.requested = append(m.requested, slices.Clone(ids))
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]Entity, len(ids))
	for _, id := range ids {
		if e, ok := m.rows[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (m *memRepository) FetchAll(_ context.Context, limit int) ([]Entity, error) {
	m.allCalls++
	m.allLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Entity, 0, len(m.order))
	for _, id := range m.order {
		if len(out) == limit {
			break
		}
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *memRepository) Seal() Repository {
	m.sealed++
	return m
}

// memBridge is an in-memory BridgeRepository
type memBridge struct {
	pairs     []BridgePair
	calls     int
	requested [][]int64
	err       error
}

func (m *memBridge) TableName() string { return "books_categories" }

func (m *memBridge) FetchBridgePairs(_ context.Context, _, _ string, sourceIDs []int64) ([]BridgePair, error) {
	m.calls++
	m.requested = append(m.requested, slices.Clone(sourceIDs))
	if m.err != nil {
		return nil, m.err
	}
	var out []BridgePair
	for _, p := range m.pairs {
		if slices.Contains(sourceIDs, p.SourceID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func records[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
