package redis_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	redis_cache "github.com/RoyceAzure/lab/rj_redis/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const productCacheTTL = time.Hour

// ProductCacheRepo 商品讀取快取，cache aside
// db才是事實來源，寫入走db後把cache invalidate掉
type ProductCacheRepo struct {
	productCache redis_cache.Cache
}

func NewProductCacheRepo(productCache redis_cache.Cache) *ProductCacheRepo {
	return &ProductCacheRepo{productCache: productCache}
}

func productKey(productID uint) string {
	return fmt.Sprintf("product:%d", productID)
}

// GetProduct 快取未命中回傳 (nil, nil)
func (s *ProductCacheRepo) GetProduct(ctx context.Context, productID uint) (*model.Product, error) {
	v, err := s.productCache.Get(ctx, productKey(productID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("獲取商品快取失敗: %w", err)
	}

	productJSON, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("商品快取資料格式錯誤")
	}

	var product model.Product
	if err := json.Unmarshal([]byte(productJSON), &product); err != nil {
		return nil, fmt.Errorf("反序列化商品失敗: %w", err)
	}
	return &product, nil
}

func (s *ProductCacheRepo) SetProduct(ctx context.Context, product *model.Product) error {
	productJSON, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("序列化商品失敗: %w", err)
	}
	return s.productCache.Set(ctx, productKey(product.ProductID), productJSON, productCacheTTL)
}

func (s *ProductCacheRepo) DeleteProduct(ctx context.Context, productID uint) error {
	return s.productCache.Delete(ctx, productKey(productID))
}
