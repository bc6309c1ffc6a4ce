package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"nbastats/reconciliation/internal/metrics"
	"nbastats/reconciliation/internal/models"

	"github.com/rs/zerolog/log"
)

// FileCache is a durable player_id -> career totals cache backed by a
// single JSON document. Official historical totals are stable within a
// run window, so entries never expire; the file is only invalidated by
// deleting it.
//
// Every failure mode degrades to a miss: a corrupt or unreadable file
// must never abort a reconciliation run.
type FileCache struct {
	path string

	mu      sync.Mutex
	loaded  bool
	entries map[string]map[string]int
}

// NewFileCache creates a cache over the document at path. The file is
// read lazily on first access.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Get returns the cached totals for a player. Only a complete record
// (every tracked metric present) counts as a hit; partial records are
// treated as misses so a fresh fetch can repair them.
func (c *FileCache) Get(playerID string) (models.Totals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()

	raw, ok := c.entries[playerID]
	if !ok {
		metrics.RecordCacheMiss()
		return nil, false
	}
	totals := make(models.Totals, len(models.Metrics))
	for _, m := range models.Metrics {
		v, ok := raw[string(m)]
		if !ok {
			metrics.RecordCacheMiss()
			return nil, false
		}
		totals[m] = v
	}
	metrics.RecordCacheHit()
	return totals, true
}

// Put stores totals for a player and flushes the whole document to
// disk. Write failures are logged and swallowed.
func (c *FileCache) Put(playerID string, totals models.Totals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()

	raw := make(map[string]int, len(totals))
	for m, v := range totals {
		raw[string(m)] = v
	}
	if c.entries == nil {
		c.entries = make(map[string]map[string]int)
	}
	c.entries[playerID] = raw
	c.flush()
}

// load reads the document once. Any read or parse failure leaves the
// cache empty (always-miss) without surfacing an error.
func (c *FileCache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.entries = make(map[string]map[string]int)

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", c.path).Msg("Totals cache unreadable, starting empty")
		}
		return
	}

	var entries map[string]map[string]int
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("path", c.path).Msg("Totals cache corrupt, starting empty")
		return
	}
	c.entries = entries
}

// flush rewrites the document wholesale: temp file in the same
// directory, then rename over the canonical path, so a crash mid-write
// never leaves a truncated cache behind.
func (c *FileCache) flush() {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode totals cache")
		return
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create cache directory")
		return
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", tmp).Msg("Failed to write totals cache")
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		log.Warn().Err(err).Str("path", c.path).Msg("Failed to replace totals cache")
	}
}
