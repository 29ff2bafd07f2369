// Side effect operators for rxbuffer
// 副作用操作符实现，包含Tap和Log
package rxbuffer

import (
	"go.uber.org/zap"
)

// Tap 在每个事件向下游传递之前执行对应的副作用，nil回调被忽略
func Tap[T any](observable Observable[T], onNext OnNext[T], onError OnError, onComplete OnComplete) Observable[T] {
	return NewObservable(func(observer Observer[T]) Disposable {
		return observable.Subscribe(&tapObserver[T]{
			downstream: observer,
			side:       NewObserver(onNext, onError, onComplete),
		})
	})
}

type tapObserver[T any] struct {
	downstream Observer[T]
	side       Observer[T]
}

func (o *tapObserver[T]) OnNext(value T) {
	o.side.OnNext(value)
	o.downstream.OnNext(value)
}

func (o *tapObserver[T]) OnError(err error) {
	o.side.OnError(err)
	o.downstream.OnError(err)
}

func (o *tapObserver[T]) OnComplete() {
	o.side.OnComplete()
	o.downstream.OnComplete()
}

// Log 日志操作符，记录所有事件
func Log[T any](observable Observable[T], logger *zap.SugaredLogger, prefix string) Observable[T] {
	logger = logger.With("stream", prefix)
	return Tap(observable,
		func(value T) {
			logger.Infow("next", "value", value)
		},
		func(err error) {
			logger.Infow("error", zap.Error(err))
		},
		func() {
			logger.Infow("complete")
		},
	)
}
