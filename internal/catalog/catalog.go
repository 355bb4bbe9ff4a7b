// Package catalog serves product search for the exchange dialog, with a short
// cache in front of the shop API.
package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/cache"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type ProductSource interface {
	SearchProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error)
}

type Catalog struct {
	source   ProductSource
	cache    cache.ProductCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func New(source ProductSource, cacheStore cache.ProductCache, cacheTTL time.Duration, logger *zap.Logger) *Catalog {
	if cacheStore == nil {
		cacheStore = cache.NoopProductCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		source:   source,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		logger:   logger.Named("catalog"),
	}
}

// Search returns one page of products. scope keeps cached pages of different
// shops apart.
func (c *Catalog) Search(ctx context.Context, scope string, q domain.ProductQuery) (domain.ProductPage, error) {
	q = Normalize(q)
	key := buildCacheKey(scope, q)

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("product cache read failed", zap.Error(err))
	} else if ok {
		return *cached, nil
	}

	page, err := c.source.SearchProducts(ctx, q)
	if err != nil {
		return domain.ProductPage{}, err
	}
	page.Products = inStockFirst(page.Products)

	if err := c.cache.Set(ctx, key, &page, c.cacheTTL); err != nil {
		c.logger.Warn("product cache write failed", zap.Error(err))
	}
	return page, nil
}

func Normalize(q domain.ProductQuery) domain.ProductQuery {
	q.Search = strings.Join(strings.Fields(q.Search), " ")
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// inStockFirst moves products without stock to the end, keeping the order
// the shop API returned otherwise.
func inStockFirst(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	var empty []domain.Product
	for _, p := range products {
		if p.StockQuantity > 0 {
			out = append(out, p)
		} else {
			empty = append(empty, p)
		}
	}
	return append(out, empty...)
}

func buildCacheKey(scope string, q domain.ProductQuery) string {
	parts := []string{
		scope,
		strings.ToLower(q.Search),
		fmt.Sprintf("p:%d", q.Page),
		fmt.Sprintf("l:%d", q.Limit),
	}
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "montshop:products:" + hex.EncodeToString(hash[:])
}
