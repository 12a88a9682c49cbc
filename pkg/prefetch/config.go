package prefetch

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize is the LRU size used when Config.CacheSize is zero
const DefaultCacheSize = 10_000

// Config declares one relation the resolver manages.
//
// For a foreign key attribute "author" on the records, use
// Config{Model: "authors", Attributes: []string{"author"}, Source: authors}.
// Nested paths use "__" or ".", e.g. "book__author" or "book.author".
//
// For a many-to-many relation set ManyToMany, Through (the join relation),
// SourceField (join column referencing the record id) and TargetField
// (join column referencing the related entity). Attributes then name the
// collections to populate on the records.
type Config struct {
	Model       string     `json:"model" yaml:"model"`
	Attributes  []string   `json:"attributes" yaml:"attributes"`
	Source      Repository `json:"-" yaml:"-"`
	PrefetchAll bool       `json:"prefetch_all" yaml:"prefetch_all"`
	CacheSize   int        `json:"cache_size" yaml:"cache_size"` // Default: 10000

	ManyToMany  bool             `json:"many_to_many" yaml:"many_to_many"`
	Through     BridgeRepository `json:"-" yaml:"-"`
	SourceField string           `json:"source_field" yaml:"source_field"`
	TargetField string           `json:"target_field" yaml:"target_field"`
}

// Validate checks the config and fills defaults
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if len(c.Attributes) == 0 {
		return fmt.Errorf("%w: %s: at least one attribute is required", ErrInvalidConfig, c.Model)
	}
	for _, attr := range c.Attributes {
		if attr == "" {
			return fmt.Errorf("%w: %s: empty attribute", ErrInvalidConfig, c.Model)
		}
	}
	if c.Source == nil {
		return fmt.Errorf("%w: %s: source repository is required", ErrInvalidConfig, c.Model)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: %s: cache_size must be positive, got %d", ErrInvalidConfig, c.Model, c.CacheSize)
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.ManyToMany && (c.Through == nil || c.SourceField == "" || c.TargetField == "") {
		return fmt.Errorf("%w: %s: for many-to-many relationships, through, source_field, and target_field must be provided", ErrInvalidConfig, c.Model)
	}
	return nil
}

// Scope returns the repository to use for bulk fetches, sealed if the
// repository supports it
func (c *Config) Scope() Repository {
	if s, ok := c.Source.(Sealer); ok {
		return s.Seal()
	}
	return c.Source
}

// bridgeKey identifies the bridge cache of a many-to-many config by
// (through relation, source field, target field)
func (c *Config) bridgeKey() uint64 {
	return xxhash.Sum64String(c.Through.TableName() + "_" + c.SourceField + "_" + c.TargetField)
}
