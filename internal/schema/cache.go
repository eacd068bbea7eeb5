package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Cache remembers the header mapping resolved for a brand's inventory files
// so that re-ingestion of a known layout skips synonym scanning. It is an
// injected object with explicit load/save, not a process-wide singleton.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]Mapping
	dirty   bool
}

func NewCache(path string) *Cache {
	return &Cache{path: path, entries: map[string]Mapping{}}
}

func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	entries := map[string]Mapping{}
	if err := json.Unmarshal(blob, &entries); err != nil {
		return err
	}
	c.entries = entries
	return nil
}

func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	blob, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(c.path, blob, 0o644); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

func (c *Cache) Get(key string) (Mapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mapping, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	copied := Mapping{}
	for k, v := range mapping {
		copied[k] = v
	}
	return copied, true
}

func (c *Cache) Put(key string, mapping Mapping) {
	if key == "" || len(mapping) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := Mapping{}
	for k, v := range mapping {
		copied[k] = v
	}
	c.entries[key] = copied
	c.dirty = true
}
