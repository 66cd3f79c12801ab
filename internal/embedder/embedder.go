// Package embedder turns chunk text into fixed-dimension float vectors.
// Providers share an LRU cache keyed on content hash and retry transient
// failures with exponential backoff.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrEmptyText is returned for empty embedding input.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrProviderFailed wraps transport or provider-side failures.
	ErrProviderFailed = errors.New("embedding provider failed")
	// ErrUnknownProvider is returned for an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Embedder is the consumed embedding contract. Implementations must be safe
// for concurrent use.
type Embedder interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns vectors for texts, same length and order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the fixed vector dimension.
	Dimension() int
	// Provider returns the provider name.
	Provider() string
	// Close releases provider resources.
	Close() error
}

// Cache is an in-memory LRU of vectors keyed by content hash.
type Cache struct {
	lru *lru.Cache[string, []float32]
}

// NewCache creates a cache holding up to maxLen vectors.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	c, err := lru.New[string, []float32](maxLen)
	if err != nil {
		c, _ = lru.New[string, []float32](10000)
	}
	return &Cache{lru: c}
}

// Get returns a copy of the cached vector so callers cannot mutate the
// cached value.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.lru.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector; LRU eviction applies at capacity.
func (c *Cache) Set(hash string, v []float32) {
	c.lru.Add(hash, v)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// ContentHash hashes text for cache keying.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
