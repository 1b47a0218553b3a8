package causal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	db "Minerva/backend/go/internal/database/neo4j"
	"Minerva/backend/go/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// maxTraversalHops 是单次遍历允许的最大跳数上限，防止构造出失控的变长路径查询。
const maxTraversalHops = 5

// maxChainsPerTraversal 是单次遍历返回的因果链数量上限。
const maxChainsPerTraversal = 10

// Neo4jProvider 是基于 Neo4j 知识图谱的 ChainProvider 实现。
// 图中的实体节点带有 name 和 user_id 属性，
// 因果边带有 confidence、explanation 和 time_to_impact 属性。
type Neo4jProvider struct {
	client *db.Neo4jClient
}

// NewNeo4jProvider 创建一个新的 Neo4jProvider。
func NewNeo4jProvider(client *db.Neo4jClient) *Neo4jProvider {
	return &Neo4jProvider{client: client}
}

// Traverse 从匹配触发事件的实体出发做变长路径遍历。
// 整链置信度是各跳置信度的乘积；低于 minConfidence 的链被丢弃，
// 结果按整链置信度降序排列。
func (p *Neo4jProvider) Traverse(ctx context.Context, userID, triggerEvent string, maxHops int, minConfidence float64) ([]*models.CausalChain, error) {
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > maxTraversalHops {
		maxHops = maxTraversalHops
	}

	// Cypher 的变长路径上界不接受参数，跳数已在上面被钳制为小整数。
	query := fmt.Sprintf(`
	MATCH path = (start {user_id: $user_id})-[rels*1..%d]->(end)
	WHERE toLower(start.name) CONTAINS toLower($trigger)
	RETURN path
	LIMIT $limit
	`, maxHops)

	params := map[string]interface{}{
		"user_id": userID,
		"trigger": triggerEvent,
		"limit":   maxChainsPerTraversal * 4, // 过滤前多取一些，避免低置信度链挤掉高置信度链
	}

	records, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("causal traversal failed: %w", err)
	}

	var chains []*models.CausalChain
	for _, record := range records.([]*neo4j.Record) {
		value, ok := record.Get("path")
		if !ok {
			continue
		}
		path, ok := value.(neo4j.Path)
		if !ok {
			continue
		}
		chain := chainFromPath(path, triggerEvent)
		if chain != nil && chain.FinalConfidence >= minConfidence {
			chains = append(chains, chain)
		}
	}

	sort.SliceStable(chains, func(i, j int) bool {
		return chains[i].FinalConfidence > chains[j].FinalConfidence
	})
	if len(chains) > maxChainsPerTraversal {
		chains = chains[:maxChainsPerTraversal]
	}
	return chains, nil
}

// chainFromPath 将一条图路径转换为因果链。
func chainFromPath(path neo4j.Path, triggerEvent string) *models.CausalChain {
	if len(path.Relationships) == 0 {
		return nil
	}

	// 建立节点元素ID到名称的索引，用于还原每跳的起止实体。
	names := make(map[string]string, len(path.Nodes))
	for _, node := range path.Nodes {
		names[node.ElementId] = stringProp(node.Props, "name")
	}

	chain := &models.CausalChain{
		TriggerEvent:    triggerEvent,
		FinalConfidence: 1.0,
	}
	for _, rel := range path.Relationships {
		confidence := floatProp(rel.Props, "confidence", 0.5)
		hop := &models.CausalHop{
			SourceEntity: names[rel.StartElementId],
			TargetEntity: names[rel.EndElementId],
			Relationship: strings.ToLower(strings.ReplaceAll(rel.Type, "_", " ")),
			Confidence:   confidence,
			Explanation:  stringProp(rel.Props, "explanation"),
		}
		chain.Hops = append(chain.Hops, hop)
		chain.FinalConfidence *= confidence

		if tti := stringProp(rel.Props, "time_to_impact"); tti != "" {
			chain.TimeToImpact = tti
		}
	}
	return chain
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func floatProp(props map[string]interface{}, key string, fallback float64) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return fallback
	}
}
