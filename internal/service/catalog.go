package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
	"golang.org/x/sync/singleflight"
)

// CatalogCache holds the last-fetched provider product list. Readers get
// stale-but-present data immediately while a background refresh runs;
// only a cold cache blocks. Concurrent refresh triggers collapse into a
// single provider fetch.
type CatalogCache struct {
	fetch  func(ctx context.Context) ([]models.Product, error)
	ttl    time.Duration
	logger *utils.Logger

	group singleflight.Group

	mu        sync.RWMutex
	products  []models.Product
	fetchedAt time.Time
}

func NewCatalogCache(fetch func(ctx context.Context) ([]models.Product, error), ttl time.Duration, logger *utils.Logger) *CatalogCache {
	return &CatalogCache{
		fetch:  fetch,
		ttl:    ttl,
		logger: logger,
	}
}

// Products returns the cached product list, refreshing as needed per the
// staleness policy. Refresh failures against a warm cache are logged and
// the old data served; a cold-cache failure is surfaced.
func (c *CatalogCache) Products(ctx context.Context) ([]models.Product, error) {
	c.mu.RLock()
	products := c.products
	fetchedAt := c.fetchedAt
	c.mu.RUnlock()

	if len(products) == 0 {
		refreshed, err := c.refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		return refreshed, nil
	}

	if time.Since(fetchedAt) > c.ttl {
		go func() {
			if _, err := c.refresh(context.Background()); err != nil {
				c.logger.Warnf("Background catalog refresh failed: %v", err)
			}
		}()
	}

	return products, nil
}

// Refresh forces a fetch, collapsed with any refresh already in flight.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *CatalogCache) refresh(ctx context.Context) ([]models.Product, error) {
	v, err, _ := c.group.Do("catalog", func() (interface{}, error) {
		start := time.Now()
		products, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.products = products
		c.fetchedAt = time.Now()
		c.mu.Unlock()

		c.logger.Infof("Catalog refreshed: %d products in %s", len(products), time.Since(start).Round(time.Millisecond))
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Product), nil
}

// Find looks up one product by code in the cached list.
func (c *CatalogCache) Find(ctx context.Context, code string) (*models.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].Code == code {
			return &products[i], nil
		}
	}
	return nil, nil
}
