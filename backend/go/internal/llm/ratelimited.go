package llm

import (
	"context"
	"sync"
	"time"

	"Minerva/backend/go/internal/models"
)

// RateLimited 是一个令牌桶装饰器，用于让流水线的扇出请求遵守
// 文本生成服务的速率限制。桶空时调用方阻塞等待，而不是收到错误。
type RateLimited struct {
	inner LLM

	rate          float64   // 每秒生成的令牌数。
	capacity      float64   // 桶容量（突发额度）。
	tokens        float64   // 当前令牌数。
	lastTokenTime time.Time // 上次补充令牌的时间。
	mutex         sync.Mutex
}

// NewRateLimited 创建一个新的速率限制装饰器。
// rate: 每秒生成的令牌数。capacity: 桶容量。
func NewRateLimited(inner LLM, rate float64, capacity int) *RateLimited {
	if capacity <= 0 {
		capacity = 1
	}
	return &RateLimited{
		inner:         inner,
		rate:          rate,
		capacity:      float64(capacity),
		tokens:        float64(capacity), // 初始为满桶。
		lastTokenTime: time.Now(),
	}
}

// GenerateContent 在取得令牌后调用内部客户端。
// 等待期间上下文被取消则立即返回取消错误。
func (r *RateLimited) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.inner.GenerateContent(ctx, req)
}

// acquire 取走一个令牌，必要时阻塞等待补充。
func (r *RateLimited) acquire(ctx context.Context) error {
	for {
		r.mutex.Lock()
		now := time.Now()
		elapsed := now.Sub(r.lastTokenTime)
		if elapsed > 0 {
			r.tokens += elapsed.Seconds() * r.rate
			if r.tokens > r.capacity {
				r.tokens = r.capacity
			}
			r.lastTokenTime = now
		}

		if r.tokens >= 1 {
			r.tokens--
			r.mutex.Unlock()
			return nil
		}

		// 计算凑满一个令牌还需要的时间。
		wait := time.Duration((1 - r.tokens) / r.rate * float64(time.Second))
		r.mutex.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
