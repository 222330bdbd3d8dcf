package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/observability/metrics"
)

// StorageKey names the persisted cache blob in every backend.
const StorageKey = "pdfProcessorCache"

// Cache is an in-memory map of processed documents fronting a BlobStore.
// At most one computation runs per key; concurrent callers share it.
type Cache struct {
	store   ports.BlobStore
	metrics *metrics.PipelineMetrics
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]domain.ProcessedDocument

	persistMu sync.Mutex
	group     singleflight.Group
}

// New loads the persisted map eagerly. An unreadable or corrupt blob is
// logged and the cache starts empty.
func New(ctx context.Context, store ports.BlobStore, pipelineMetrics *metrics.PipelineMetrics, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		store:   store,
		metrics: pipelineMetrics,
		logger:  logger,
		entries: make(map[string]domain.ProcessedDocument),
	}
	c.load(ctx)
	return c
}

func (c *Cache) load(ctx context.Context) {
	if c.store == nil {
		return
	}
	raw, err := c.store.Read(ctx)
	if err != nil {
		c.logger.Warn("cache_load_failed", "error", err)
		return
	}
	if len(raw) == 0 {
		return
	}
	var entries map[string]domain.ProcessedDocument
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("cache_corrupt", "error", err)
		return
	}
	if entries != nil {
		c.entries = entries
	}
	c.logger.Info("cache_loaded", "entries", len(c.entries))
}

func (c *Cache) Get(key string) (domain.ProcessedDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.entries[key]
	return doc, ok
}

// Put stores doc and persists the map. The in-memory entry is kept even when
// persisting fails.
func (c *Cache) Put(ctx context.Context, key string, doc domain.ProcessedDocument) error {
	c.mu.Lock()
	c.entries[key] = doc
	c.mu.Unlock()
	return c.persist(ctx)
}

func (c *Cache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func(context.Context) (domain.ProcessedDocument, error),
) (domain.ProcessedDocument, error) {
	if doc, ok := c.Get(key); ok {
		c.metrics.RecordCacheLookup(true)
		return doc, nil
	}
	c.metrics.RecordCacheLookup(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if doc, ok := c.Get(key); ok {
			return doc, nil
		}
		// Shared by every waiter, so it must not die with the first caller.
		doc, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return domain.ProcessedDocument{}, err
		}
		if err := c.Put(ctx, key, doc); err != nil {
			c.logger.Error("cache_persist_failed", "key", key, "error", err)
		}
		return doc, nil
	})
	if err != nil {
		return domain.ProcessedDocument{}, err
	}
	return v.(domain.ProcessedDocument), nil
}

// List returns every cached document ordered by key.
func (c *Cache) List() []domain.ProcessedDocument {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.ProcessedDocument, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.entries[k])
	}
	c.mu.RUnlock()
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	raw, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := c.store.Write(context.WithoutCancel(ctx), raw); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}
