// Observable implementation for rxbuffer
// Observable的核心实现
package rxbuffer

// ObservableFunc 将订阅函数适配为Observable，不做任何协议保护
//
// 用于包装已知行为良好的生产者，或在测试中模拟行为不良的生产者。
type ObservableFunc[T any] func(observer Observer[T]) Disposable

// Subscribe 订阅观察者
func (f ObservableFunc[T]) Subscribe(observer Observer[T]) Disposable {
	if d := f(observer); d != nil {
		return d
	}
	return Disposed()
}

// observableImpl Observable的核心实现
type observableImpl[T any] struct {
	source func(observer Observer[T]) Disposable
	config *config
}

// NewObservable 创建新的Observable
//
// 每个订阅者都会被包装成终止保护的观察者：source在终止之后的调用会被忽略。
func NewObservable[T any](source func(observer Observer[T]) Disposable, options ...Option) Observable[T] {
	return &observableImpl[T]{
		source: source,
		config: newConfig(options...),
	}
}

// Subscribe 订阅观察者
func (o *observableImpl[T]) Subscribe(observer Observer[T]) Disposable {
	safe := newSafeObserver(observer, o.config.logger)
	if d := o.source(safe); d != nil {
		return d
	}
	return Disposed()
}

// SubscribeWithCallbacks 使用回调函数订阅
func SubscribeWithCallbacks[T any](
	observable Observable[T],
	onNext OnNext[T],
	onError OnError,
	onComplete OnComplete,
) Disposable {
	return observable.Subscribe(NewObserver(onNext, onError, onComplete))
}
