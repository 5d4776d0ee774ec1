package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize bounds the number of distinct tool schemas kept sanitized in
// memory; tool declarations repeat heavily across requests from the same
// client so this avoids resanitizing on every call.
const cacheSize = 512

// Cache memoizes Sanitize by a hash of the input schema's JSON encoding.
type Cache struct {
	lru *lru.Cache[string, map[string]any]
}

// NewCache constructs a bounded sanitizer cache.
func NewCache() (*Cache, error) {
	c, err := lru.New[string, map[string]any](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// SanitizeCached returns Sanitize(s), serving from cache when the exact
// input schema was sanitized before.
func (c *Cache) SanitizeCached(s map[string]any) map[string]any {
	key, err := hashSchema(s)
	if err != nil {
		return Sanitize(s)
	}
	if v, ok := c.lru.Get(key); ok {
		return v
	}
	out := Sanitize(s)
	c.lru.Add(key, out)
	return out
}

func hashSchema(s map[string]any) (string, error) {
	encoded, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
