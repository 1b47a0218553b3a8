package causal

import (
	"context"

	"Minerva/backend/go/internal/models"
)

// ChainProvider 定义了因果链提供方的契约：
// 给定一个触发事件，在知识图谱上做有界多跳遍历，返回按整链置信度降序排列的因果链。
// 对洞察流水线而言它是一个黑盒叶子依赖。
type ChainProvider interface {
	Traverse(ctx context.Context, userID, triggerEvent string, maxHops int, minConfidence float64) ([]*models.CausalChain, error)
}
