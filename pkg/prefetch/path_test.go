package prefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyRelations records which relations were dereferenced
type spyRelations struct {
	keys    map[string]*int64
	related map[string]Relations
	derefs  []string
}

func (s *spyRelations) ForeignKey(name string) (int64, bool, error) {
	id, ok := s.keys[name]
	if !ok {
		return 0, false, ErrUnknownRelation
	}
	if id == nil {
		return 0, false, nil
	}
	return *id, true, nil
}

func (s *spyRelations) Related(name string) (Relations, error) {
	s.derefs = append(s.derefs, name)
	if rel, ok := s.related[name]; ok {
		return rel, nil
	}
	return nil, nil
}

func (s *spyRelations) SetRelated(string, Entity) error { return nil }

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"author"}, SplitPath("author"))
	assert.Equal(t, []string{"book", "author"}, SplitPath("book__author"))
	assert.Equal(t, []string{"book", "author"}, SplitPath("book.author"))
	// "__" wins when both are present
	assert.Equal(t, []string{"a.b", "c"}, SplitPath("a.b__c"))
}

func TestResolvePathDirect(t *testing.T) {
	b := &book{ID: 1, AuthorID: 7}

	target, ok, err := ResolvePath(b, "author")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), target.ID)
	assert.Equal(t, "author", target.Name)
	assert.Same(t, b, target.Owner)
}

func TestResolvePathNested(t *testing.T) {
	b := &book{ID: 3, AuthorID: 9}
	r := &review{ID: 1, BookID: ptr(int64(3)), Book: b}

	for _, path := range []string{"book__author", "book.author"} {
		target, ok, err := ResolvePath(r, path)
		require.NoError(t, err, path)
		require.True(t, ok, path)
		assert.Equal(t, int64(9), target.ID)
		assert.Equal(t, "author", target.Name)
		assert.Same(t, b, target.Owner, "owner is the intermediate object")
	}
}

func TestResolvePathShortCircuitsOnNullIntermediate(t *testing.T) {
	inner := &spyRelations{keys: map[string]*int64{"author": ptr(int64(5))}}
	outer := &spyRelations{
		keys:    map[string]*int64{"book": nil},
		related: map[string]Relations{"book": inner},
	}

	_, ok, err := ResolvePath(outer, "book__author")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, outer.derefs, "null relation must not be dereferenced")
}

func TestResolvePathNullFinalSegment(t *testing.T) {
	b := &book{ID: 1, AuthorID: 2}

	_, ok, err := ResolvePath(b, "translator")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolvePathUnknownSegment(t *testing.T) {
	b := &book{ID: 1}

	_, _, err := ResolvePath(b, "editor")
	require.Error(t, err)
	assert.True(t, IsUnknownRelation(err))

	r := &review{ID: 1, BookID: ptr(int64(1)), Book: b}
	_, _, err = ResolvePath(r, "book.editor")
	assert.True(t, IsUnknownRelation(err))
}

func TestResolvePathUnloadedIntermediate(t *testing.T) {
	r := &review{ID: 1, BookID: ptr(int64(4))}

	_, ok, err := ResolvePath(r, "book__author")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "not loaded")
}
