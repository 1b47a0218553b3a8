package fanout

import (
	"context"
	"sync"
)

// Result 保存单个工作单元的输出及其输入下标。
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Map 以最多 limit 个并发 goroutine 对 inputs 的每个元素执行 fn，
// 并按输入下标顺序返回结果，使顺序执行与并发执行对调用方完全等价。
// limit <= 1 时退化为顺序执行。上下文取消后不再启动新的工作单元。
func Map[T, R any](ctx context.Context, limit int, inputs []T, fn func(ctx context.Context, index int, input T) (R, error)) []Result[R] {
	results := make([]Result[R], len(inputs))

	if limit <= 1 {
		for i, input := range inputs {
			if ctx.Err() != nil {
				results[i] = Result[R]{Index: i, Err: ctx.Err()}
				continue
			}
			value, err := fn(ctx, i, input)
			results[i] = Result[R]{Index: i, Value: value, Err: err}
		}
		return results
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, input := range inputs {
		if ctx.Err() != nil {
			results[i] = Result[R]{Index: i, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, input T) {
			defer wg.Done()
			defer func() { <-sem }()
			value, err := fn(ctx, i, input)
			results[i] = Result[R]{Index: i, Value: value, Err: err}
		}(i, input)
	}
	wg.Wait()

	return results
}
