package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrCacheMiss возвращается, если товара нет в кэше.
var ErrCacheMiss = domain.ErrCacheMiss

// ProductCache кэширует карточки товаров по slug.
type ProductCache struct {
	client  *goredis.Client
	baseTTL time.Duration
}

// NewProductCache создаёт кэш с базовым TTL; к нему добавляется случайный разброс до минуты.
func NewProductCache(client *goredis.Client, baseTTL time.Duration) *ProductCache {
	if baseTTL <= 0 {
		baseTTL = 5 * time.Minute
	}
	return &ProductCache{client: client, baseTTL: baseTTL}
}

func (c *ProductCache) Get(ctx context.Context, slug string) (domain.Product, error) {
	data, err := c.client.Get(ctx, productKey(slug)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Product{}, ErrCacheMiss
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("redis get product: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal cached product: %w", err)
	}
	return p, nil
}

func (c *ProductCache) Set(ctx context.Context, p domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	ttl := c.baseTTL + time.Duration(rand.IntN(60))*time.Second
	if err := c.client.Set(ctx, productKey(p.Slug), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set product: %w", err)
	}
	return nil
}

func (c *ProductCache) Delete(ctx context.Context, slug string) error {
	if err := c.client.Del(ctx, productKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis delete product: %w", err)
	}
	return nil
}

func productKey(slug string) string {
	return "product:" + slug
}
