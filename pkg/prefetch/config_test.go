package prefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{Model: "authors", Attributes: []string{"author"}, Source: newMemRepository()}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
}

func TestConfigValidateErrors(t *testing.T) {
	repo := newMemRepository()

	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{"missing model", Config{Attributes: []string{"author"}, Source: repo}, "model is required"},
		{"missing attributes", Config{Model: "authors", Source: repo}, "at least one attribute"},
		{"empty attribute", Config{Model: "authors", Attributes: []string{""}, Source: repo}, "empty attribute"},
		{"missing source", Config{Model: "authors", Attributes: []string{"author"}}, "source repository"},
		{"negative size", Config{Model: "authors", Attributes: []string{"author"}, Source: repo, CacheSize: -1}, "cache_size"},
		{
			"many-to-many without through",
			Config{Model: "categories", Attributes: []string{"categories"}, Source: repo, ManyToMany: true, SourceField: "book_id", TargetField: "category_id"},
			"through, source_field, and target_field",
		},
		{
			"many-to-many without target field",
			Config{Model: "categories", Attributes: []string{"categories"}, Source: repo, ManyToMany: true, Through: &memBridge{}, SourceField: "book_id"},
			"through, source_field, and target_field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsInvalidConfig(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestConfigScopeSeals(t *testing.T) {
	repo := newMemRepository()
	cfg := Config{Model: "authors", Attributes: []string{"author"}, Source: repo}

	assert.Same(t, repo, cfg.Scope())
	assert.Equal(t, 1, repo.sealed)
}

func TestBridgeKeyDependsOnTriple(t *testing.T) {
	a := Config{Through: &memBridge{}, SourceField: "book_id", TargetField: "category_id"}
	b := Config{Through: &memBridge{}, SourceField: "book_id", TargetField: "tag_id"}

	assert.Equal(t, a.bridgeKey(), a.bridgeKey())
	assert.NotEqual(t, a.bridgeKey(), b.bridgeKey())
}
