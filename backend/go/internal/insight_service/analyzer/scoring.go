package analyzer

import "fmt"

// 综合分的加权常量。三者之和必须为 1.0，由 ValidateWeights 在启动时强制检查。
const (
	ImpactWeight     = 0.40 // 影响强度权重
	ConfidenceWeight = 0.35 // 因果链置信度权重
	UrgencyWeight    = 0.25 // 紧迫度权重
)

// 影响强度内部的加权常量，同样要求和为 1.0。
const (
	GoalCountWeight       = 0.4 // 受影响目标数量因子
	GoalPriorityWeight    = 0.4 // 受影响目标平均优先级因子
	ChainConfidenceWeight = 0.2 // 整链置信度因子
)

// ValidateWeights 校验加权常量的内部一致性。
func ValidateWeights() error {
	if s := ImpactWeight + ConfidenceWeight + UrgencyWeight; !almostOne(s) {
		return fmt.Errorf("combined score weights sum to %v, want 1.0", s)
	}
	if s := GoalCountWeight + GoalPriorityWeight + ChainConfidenceWeight; !almostOne(s) {
		return fmt.Errorf("impact score weights sum to %v, want 1.0", s)
	}
	return nil
}

func almostOne(v float64) bool {
	return v > 0.999999 && v < 1.000001
}

// clamp01 将分数钳制到 [0,1]。所有分数字段在存储或返回前都要经过这里。
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// impactScore 计算影响强度：受影响目标越多、优先级越高、链置信度越高，影响越大。
func impactScore(affectedCount int, avgPriority, finalConfidence float64) float64 {
	countFactor := float64(affectedCount) / 3
	if countFactor > 1 {
		countFactor = 1
	}
	priorityFactor := avgPriority / 5
	if priorityFactor > 1 {
		priorityFactor = 1
	}
	return clamp01(GoalCountWeight*countFactor + GoalPriorityWeight*priorityFactor + ChainConfidenceWeight*finalConfidence)
}

// combinedScore 计算排序与过滤所用的综合分。
func combinedScore(impact, confidence, urgency float64) float64 {
	return clamp01(ImpactWeight*impact + ConfidenceWeight*confidence + UrgencyWeight*urgency)
}
