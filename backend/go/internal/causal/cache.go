package causal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// CachedProvider 是 ChainProvider 的 Redis 读穿透缓存装饰器。
// 缓存只是加速手段：任何 Redis 故障都静默降级为直接遍历。
type CachedProvider struct {
	inner  ChainProvider
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider 创建一个新的缓存装饰器。ttl <= 0 时直接返回内部提供方。
func NewCachedProvider(inner ChainProvider, client *redis.Client, ttl time.Duration, logger *logger.Logger) ChainProvider {
	if ttl <= 0 || client == nil {
		return inner
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Traverse 先查缓存，未命中时遍历并回填。
func (p *CachedProvider) Traverse(ctx context.Context, userID, triggerEvent string, maxHops int, minConfidence float64) ([]*models.CausalChain, error) {
	key := fmt.Sprintf("causal:chains:%s:%s:%d:%.2f", userID, triggerEvent, maxHops, minConfidence)

	cached, err := p.client.Get(ctx, key).Result()
	if err == nil {
		var chains []*models.CausalChain
		if err := json.Unmarshal([]byte(cached), &chains); err == nil {
			return chains, nil
		}
		// 反序列化失败视为未命中，走正常遍历覆盖脏数据。
	} else if err != redis.Nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "cache_error"}).Warn("读取因果链缓存失败，降级为直接遍历")
	}

	chains, err := p.inner.Traverse(ctx, userID, triggerEvent, maxHops, minConfidence)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(chains); err == nil {
		if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
			p.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "cache_error"}).Warn("写入因果链缓存失败")
		}
	}
	return chains, nil
}
