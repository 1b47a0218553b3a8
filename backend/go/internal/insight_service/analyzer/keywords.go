package analyzer

import (
	"strings"
	"unicode"
)

// minKeywordLen 是参与重叠比较的最短 token 长度。
const minKeywordLen = 3

// tokenize 将文本切分为小写 token 集合，丢弃过短的 token。
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(field) >= minKeywordLen {
			tokens[field] = struct{}{}
		}
	}
	return tokens
}

// keywordOverlap 返回同时出现在两个文本中的关键词集合。
func keywordOverlap(entityText, goalText string) []string {
	entityTokens := tokenize(entityText)
	goalTokens := tokenize(goalText)

	var overlap []string
	for token := range entityTokens {
		if _, ok := goalTokens[token]; ok {
			overlap = append(overlap, token)
		}
	}
	return overlap
}

// keywordMatch 判断实体文本与目标文本是否存在足够的关键词重叠：
// 任一重叠关键词长度大于 4 且在目标文本中以字面子串出现，或重叠关键词数量不少于 2。
func keywordMatch(entityText, goalText string) bool {
	overlap := keywordOverlap(entityText, goalText)
	lowerGoal := strings.ToLower(goalText)
	for _, kw := range overlap {
		if len(kw) > 4 && strings.Contains(lowerGoal, kw) {
			return true
		}
	}
	return len(overlap) >= 2
}
