package params

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
)

// schemaKey identifies a constraint schema by the digest of its JSON
// encoding. encoding/json sorts map keys, so parameters with equal
// constraints share a key whatever their name or set.
type schemaKey [blake2b.Size256]byte

func schemaDigest(schema JSONSchema) (schemaKey, []byte, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return schemaKey{}, nil, err
	}
	return blake2b.Sum256(b), b, nil
}

// schemaCache holds compiled schemas. When full, the entry compiled
// first is evicted.
type schemaCache struct {
	mu      sync.Mutex
	entries map[schemaKey]*jsonschema.Schema
	order   []schemaKey
	limit   int
}

func newSchemaCache(limit int) *schemaCache {
	return &schemaCache{
		entries: make(map[schemaKey]*jsonschema.Schema, limit),
		limit:   limit,
	}
}

func (c *schemaCache) get(key schemaKey) (*jsonschema.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[key]
	return s, ok
}

func (c *schemaCache) put(key schemaKey, s *jsonschema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.order) >= c.limit {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = s
	c.order = append(c.order, key)
}

func (c *schemaCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
