package analyzer

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultUrgency 是没有时间提示时的紧迫度。
const defaultUrgency = 0.5

var (
	dayPattern   = regexp.MustCompile(`(\d+)\s*day`)
	weekPattern  = regexp.MustCompile(`(\d+)\s*week`)
	monthPattern = regexp.MustCompile(`(\d+)\s*month`)
)

// urgencyFromHint 把自由文本的影响时间提示映射为紧迫度分数。
// 规则按序匹配，第一条命中的规则生效；未知文本与空提示都落到默认值，
// 因此该映射对任何输入都是全函数且幂等。
func urgencyFromHint(hint string) float64 {
	if hint == "" {
		return defaultUrgency
	}
	h := strings.ToLower(hint)

	for _, kw := range []string{"immediate", "urgent", "now", "critical"} {
		if strings.Contains(h, kw) {
			return 0.9
		}
	}

	if m := dayPattern.FindStringSubmatch(h); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case n <= 3:
			return 0.8
		case n <= 7:
			return 0.6
		case n <= 14:
			return 0.4
		default:
			return 0.3
		}
	}

	if m := weekPattern.FindStringSubmatch(h); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case n <= 1:
			return 0.7
		case n <= 2:
			return 0.5
		case n <= 4:
			return 0.3
		default:
			return 0.2
		}
	}

	if m := monthPattern.FindStringSubmatch(h); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case n <= 1:
			return 0.4
		case n <= 3:
			return 0.3
		default:
			return 0.2
		}
	}

	for _, kw := range []string{"soon", "near", "short"} {
		if strings.Contains(h, kw) {
			return 0.7
		}
	}
	for _, kw := range []string{"long", "future", "eventual"} {
		if strings.Contains(h, kw) {
			return 0.2
		}
	}

	return defaultUrgency
}
