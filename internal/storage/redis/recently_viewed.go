package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// RecentlyViewedStore хранит историю просмотров в sorted set, score равен времени просмотра.
type RecentlyViewedStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRecentlyViewedStore создаёт хранилище поверх готового клиента.
func NewRecentlyViewedStore(client *goredis.Client) *RecentlyViewedStore {
	return &RecentlyViewedStore{client: client, ttl: 30 * 24 * time.Hour}
}

// Touch записывает просмотр и обрезает набор до RecentlyViewedLimit самых свежих.
func (s *RecentlyViewedStore) Touch(ctx context.Context, userID, productID int64, at time.Time) error {
	key := recentKey(userID)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(at.UnixMilli()), Member: strconv.FormatInt(productID, 10)})
	pipe.ZRemRangeByRank(ctx, key, 0, -int64(domain.RecentlyViewedLimit)-1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis touch recently viewed: %w", err)
	}
	return nil
}

// List возвращает ID товаров, последние просмотренные первыми.
func (s *RecentlyViewedStore) List(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if limit <= 0 || limit > domain.RecentlyViewedLimit {
		limit = domain.RecentlyViewedLimit
	}

	members, err := s.client.ZRevRange(ctx, recentKey(userID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list recently viewed: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func recentKey(userID int64) string {
	return fmt.Sprintf("recently_viewed:%d", userID)
}

var _ domain.RecentlyViewedStore = (*RecentlyViewedStore)(nil)
