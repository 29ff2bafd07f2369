// Observer implementations for rxbuffer
// 观察者实现：回调观察者与终止保护
package rxbuffer

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// callbackObserver 基于回调函数的观察者，nil回调被忽略
type callbackObserver[T any] struct {
	onNext     OnNext[T]
	onError    OnError
	onComplete OnComplete
}

// NewObserver 使用回调函数创建观察者
func NewObserver[T any](onNext OnNext[T], onError OnError, onComplete OnComplete) Observer[T] {
	return &callbackObserver[T]{
		onNext:     onNext,
		onError:    onError,
		onComplete: onComplete,
	}
}

func (o *callbackObserver[T]) OnNext(value T) {
	if o.onNext != nil {
		o.onNext(value)
	}
}

func (o *callbackObserver[T]) OnError(err error) {
	if o.onError != nil {
		o.onError(err)
	}
}

func (o *callbackObserver[T]) OnComplete() {
	if o.onComplete != nil {
		o.onComplete()
	}
}

// safeObserver 保证终止事件之后不再向下游投递任何事件
//
// 违反协议的调用被丢弃并记录日志，不会以错误的形式暴露给使用者。
type safeObserver[T any] struct {
	done       atomic.Bool
	downstream Observer[T]
	logger     *zap.SugaredLogger
}

func newSafeObserver[T any](downstream Observer[T], logger *zap.SugaredLogger) *safeObserver[T] {
	if s, ok := downstream.(*safeObserver[T]); ok {
		return s
	}
	return &safeObserver[T]{downstream: downstream, logger: logger}
}

func (o *safeObserver[T]) OnNext(value T) {
	if o.done.Load() {
		o.violation(KindNext)
		return
	}
	o.downstream.OnNext(value)
}

func (o *safeObserver[T]) OnError(err error) {
	if !o.done.CompareAndSwap(false, true) {
		o.violation(KindError)
		return
	}
	o.downstream.OnError(err)
}

func (o *safeObserver[T]) OnComplete() {
	if !o.done.CompareAndSwap(false, true) {
		o.violation(KindComplete)
		return
	}
	o.downstream.OnComplete()
}

func (o *safeObserver[T]) violation(kind Kind) {
	o.logger.Warnw("observer called after terminal event", "kind", kind.String())
}
