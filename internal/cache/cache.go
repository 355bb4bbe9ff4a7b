package cache

import (
	"context"
	"time"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

// ProductCache stores product search pages for a short time so a typing
// operator does not hit the shop API on every keystroke.
type ProductCache interface {
	Get(ctx context.Context, key string) (*domain.ProductPage, bool, error)
	Set(ctx context.Context, key string, value *domain.ProductPage, ttl time.Duration) error
}

type NoopProductCache struct{}

func (NoopProductCache) Get(_ context.Context, _ string) (*domain.ProductPage, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) Set(_ context.Context, _ string, _ *domain.ProductPage, _ time.Duration) error {
	return nil
}
