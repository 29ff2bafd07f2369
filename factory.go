// Factory functions for rxbuffer
// 工厂函数，提供符合Go习惯的API设计
package rxbuffer

import (
	"context"
	"sync"
	"time"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// Just 从给定的值创建Observable，订阅时同步发射全部值并完成
func Just[T any](values ...T) Observable[T] {
	return FromSlice(values)
}

// FromSlice 从切片创建Observable，订阅时同步发射全部值并完成
func FromSlice[T any](slice []T) Observable[T] {
	return NewObservable(func(observer Observer[T]) Disposable {
		d := NewDisposable(nil)
		for _, item := range slice {
			if d.IsDisposed() {
				return d
			}
			observer.OnNext(item)
		}
		observer.OnComplete()
		d.Dispose()
		return d
	})
}

// Empty 创建一个空的Observable，立即完成
func Empty[T any]() Observable[T] {
	return NewObservable(func(observer Observer[T]) Disposable {
		observer.OnComplete()
		return Disposed()
	})
}

// Never 创建一个永不发射任何值的Observable
func Never[T any]() Observable[T] {
	return NewObservable(func(observer Observer[T]) Disposable {
		return NewDisposable(nil)
	})
}

// Throw 创建一个立即发射错误的Observable
func Throw[T any](err error) Observable[T] {
	return NewObservable(func(observer Observer[T]) Disposable {
		observer.OnError(err)
		return Disposed()
	})
}

// ============================================================================
// 从数据源创建
// ============================================================================

// FromChannel 从Go channel创建Observable，channel关闭时完成，ctx取消时停止投递
func FromChannel[T any](ctx context.Context, ch <-chan T) Observable[T] {
	return NewObservable(func(observer Observer[T]) Disposable {
		ctx, cancel := context.WithCancel(ctx)

		go func() {
			defer cancel()

			for {
				select {
				case <-ctx.Done():
					return
				case value, ok := <-ch:
					if !ok {
						observer.OnComplete()
						return
					}
					observer.OnNext(value)
				}
			}
		}()

		return NewDisposable(cancel)
	})
}

// ============================================================================
// 时间相关工厂函数
// ============================================================================

// Interval 创建定期发射递增整数的Observable，从0开始，由scheduler驱动
func Interval(scheduler Scheduler, period time.Duration) Observable[int] {
	return NewObservable(func(observer Observer[int]) Disposable {
		var (
			mu      sync.Mutex
			counter int
			pending Disposable
		)
		subscription := NewDisposable(func() {
			mu.Lock()
			defer mu.Unlock()
			if pending != nil {
				pending.Dispose()
			}
		})

		var tick func()
		tick = func() {
			mu.Lock()
			if subscription.IsDisposed() {
				mu.Unlock()
				return
			}
			value := counter
			counter++
			mu.Unlock()

			observer.OnNext(value)

			mu.Lock()
			if !subscription.IsDisposed() {
				pending = scheduler.ScheduleWithDelay(tick, period)
			}
			mu.Unlock()
		}

		mu.Lock()
		pending = scheduler.ScheduleWithDelay(tick, period)
		mu.Unlock()

		return subscription
	})
}

// Timer 创建在指定延迟后发射0并完成的Observable
func Timer(scheduler Scheduler, delay time.Duration) Observable[int] {
	return NewObservable(func(observer Observer[int]) Disposable {
		return scheduler.ScheduleWithDelay(func() {
			observer.OnNext(0)
			observer.OnComplete()
		}, delay)
	})
}
