package models

// CausalHop 代表因果链中的一条有向边（原因 -> 结果）。
// 它由因果链提供方（知识图谱遍历）产出，产出后不可变。
type CausalHop struct {
	SourceEntity string  `json:"source_entity"` // 原因实体名称
	TargetEntity string  `json:"target_entity"` // 结果实体名称
	Relationship string  `json:"relationship"`  // 关系描述（自由文本，例如 "enables", "threatens"）
	Confidence   float64 `json:"confidence"`    // 该跳的置信度，范围 [0,1]
	Explanation  string  `json:"explanation,omitempty"` // 该跳成立的简要说明
}

// CausalChain 代表从一个触发事件出发的多跳因果链。
// 消费方只读，任何富化都应产生新的记录而不是修改链本身。
type CausalChain struct {
	TriggerEvent    string       `json:"trigger_event"`            // 触发事件
	Hops            []*CausalHop `json:"hops"`                     // 按因果顺序排列的跳列表
	FinalConfidence float64      `json:"final_confidence"`         // 整条链的置信度，范围 [0,1]
	TimeToImpact    string       `json:"time_to_impact,omitempty"` // 影响时间提示（自由文本，可为空）
}

// FinalHop 返回链上的最后一跳；空链返回 nil。
func (c *CausalChain) FinalHop() *CausalHop {
	if len(c.Hops) == 0 {
		return nil
	}
	return c.Hops[len(c.Hops)-1]
}
