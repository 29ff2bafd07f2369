// Blocking operators for rxbuffer
// 阻塞操作符实现
package rxbuffer

import (
	"context"
	"sync"
)

// BlockingToSlice 阻塞收集所有值，直到Observable终止或ctx被取消
//
// Observable出错时返回已收集的值和该错误；ctx取消时释放订阅并返回ctx.Err()。
func BlockingToSlice[T any](ctx context.Context, observable Observable[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
		err    error
		done   = make(chan struct{})
	)

	subscription := observable.Subscribe(newSafeObserver(NewObserver(
		func(value T) {
			mu.Lock()
			values = append(values, value)
			mu.Unlock()
		},
		func(e error) {
			mu.Lock()
			err = e
			mu.Unlock()
			close(done)
		},
		func() {
			close(done)
		},
	), nopLogger))
	defer subscription.Dispose()

	select {
	case <-done:
	case <-ctx.Done():
		subscription.Dispose()
		mu.Lock()
		defer mu.Unlock()
		return values, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, err
}
