package resolve

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CatalogLoader fetches canonical lists and synonym tables from storage.
type CatalogLoader interface {
	DistinctNames(ctx context.Context) ([]string, error)
	DistinctWorkloads(ctx context.Context) ([]string, error)
	SynonymsByKind(ctx context.Context, kind string) (map[string][]string, error)
}

const (
	cacheKeyNames     = "catalog:names"
	cacheKeyWorkloads = "catalog:workloads"
	cacheKeySynPrefix = "catalog:synonyms:"

	KindEngagementName = "engagement_name"
	KindWorkload       = "workload"
)

// CatalogCache is the service-owned cache of canonical catalog values.
// Reads are thread-safe; Refresh and Invalidate are explicit entry points
// rather than implicit first-call population shared across requests.
type CatalogCache struct {
	loader CatalogLoader
	cache  *gocache.Cache

	// StaticWorkloads enriches the DB-derived workload list; the DB stays
	// the source of truth.
	StaticWorkloads []string
}

func NewCatalogCache(loader CatalogLoader, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CatalogCache{
		loader: loader,
		cache:  gocache.New(ttl, 10*time.Minute),
	}
}

// Refresh eagerly loads every list, replacing whatever is cached.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	if _, err := c.loadNames(ctx); err != nil {
		return fmt.Errorf("refresh names: %w", err)
	}
	if _, err := c.loadWorkloads(ctx); err != nil {
		return fmt.Errorf("refresh workloads: %w", err)
	}
	for _, kind := range []string{KindEngagementName, KindWorkload} {
		if _, err := c.loadSynonyms(ctx, kind); err != nil {
			return fmt.Errorf("refresh synonyms %s: %w", kind, err)
		}
	}
	return nil
}

// Invalidate drops all cached lists; the next read reloads.
func (c *CatalogCache) Invalidate() {
	c.cache.Flush()
}

func (c *CatalogCache) Names(ctx context.Context) ([]string, error) {
	if v, found := c.cache.Get(cacheKeyNames); found {
		return v.([]string), nil
	}
	return c.loadNames(ctx)
}

func (c *CatalogCache) Workloads(ctx context.Context) ([]string, error) {
	if v, found := c.cache.Get(cacheKeyWorkloads); found {
		return v.([]string), nil
	}
	return c.loadWorkloads(ctx)
}

func (c *CatalogCache) SynonymTable(ctx context.Context, kind string) (SynonymTable, error) {
	if v, found := c.cache.Get(cacheKeySynPrefix + kind); found {
		return v.(SynonymTable), nil
	}
	return c.loadSynonyms(ctx, kind)
}

func (c *CatalogCache) loadNames(ctx context.Context) ([]string, error) {
	names, err := c.loader.DistinctNames(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(cacheKeyNames, names, gocache.DefaultExpiration)
	return names, nil
}

func (c *CatalogCache) loadWorkloads(ctx context.Context) ([]string, error) {
	workloads, err := c.loader.DistinctWorkloads(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	merged := make([]string, 0, len(workloads)+len(c.StaticWorkloads))
	for _, w := range workloads {
		if w != "" && !seen[w] {
			seen[w] = true
			merged = append(merged, w)
		}
	}
	for _, w := range c.StaticWorkloads {
		if w != "" && !seen[w] {
			seen[w] = true
			merged = append(merged, w)
		}
	}

	c.cache.Set(cacheKeyWorkloads, merged, gocache.DefaultExpiration)
	return merged, nil
}

func (c *CatalogCache) loadSynonyms(ctx context.Context, kind string) (SynonymTable, error) {
	raw, err := c.loader.SynonymsByKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	table := SynonymTable(raw)
	c.cache.Set(cacheKeySynPrefix+kind, table, gocache.DefaultExpiration)
	return table, nil
}

// NameSource adapts the cache to the ChoiceSource contract for the
// engagement-name field.
type NameSource struct {
	Cache *CatalogCache
}

func (s NameSource) Choices(ctx context.Context) ([]string, error) {
	return s.Cache.Names(ctx)
}

func (s NameSource) Synonyms(ctx context.Context) (SynonymTable, error) {
	return s.Cache.SynonymTable(ctx, KindEngagementName)
}

// WorkloadSource adapts the cache for the workload field.
type WorkloadSource struct {
	Cache *CatalogCache
}

func (s WorkloadSource) Choices(ctx context.Context) ([]string, error) {
	return s.Cache.Workloads(ctx)
}

func (s WorkloadSource) Synonyms(ctx context.Context) (SynonymTable, error) {
	return s.Cache.SynonymTable(ctx, KindWorkload)
}
