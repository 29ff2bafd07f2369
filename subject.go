// Subject implementations for rxbuffer
// PublishSubject：既是Observable又是Observer的热数据源
package rxbuffer

import (
	"sync"
)

// PublishSubject 发布主题，只向当前订阅者发送新的值
//
// 终止之后订阅的观察者会在Subscribe中同步收到同样的终止事件。
type PublishSubject[T any] struct {
	mu        sync.RWMutex
	observers []subjectObserver[T]
	nextID    uint64
	done      bool
	err       error
	config    *config
}

// NewPublishSubject 创建新的发布主题
func NewPublishSubject[T any](options ...Option) *PublishSubject[T] {
	return &PublishSubject[T]{
		config: newConfig(options...),
	}
}

// Subscribe 订阅观察者
func (ps *PublishSubject[T]) Subscribe(observer Observer[T]) Disposable {
	safe := newSafeObserver(observer, ps.config.logger)

	ps.mu.Lock()
	if ps.done {
		err := ps.err
		ps.mu.Unlock()
		if err != nil {
			safe.OnError(err)
		} else {
			safe.OnComplete()
		}
		return Disposed()
	}

	id := ps.nextID
	ps.nextID++
	ps.observers = append(ps.observers, subjectObserver[T]{id: id, observer: safe})
	ps.mu.Unlock()

	return NewDisposable(func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		for i, o := range ps.observers {
			if o.id == id {
				ps.observers = append(ps.observers[:i:i], ps.observers[i+1:]...)
				return
			}
		}
	})
}

// OnNext 发送下一个值
func (ps *PublishSubject[T]) OnNext(value T) {
	for _, observer := range ps.snapshot(false, nil) {
		observer.OnNext(value)
	}
}

// OnError 发送错误
func (ps *PublishSubject[T]) OnError(err error) {
	for _, observer := range ps.snapshot(true, err) {
		observer.OnError(err)
	}
}

// OnComplete 发送完成信号
func (ps *PublishSubject[T]) OnComplete() {
	for _, observer := range ps.snapshot(true, nil) {
		observer.OnComplete()
	}
}

// HasObservers 检查是否有观察者
func (ps *PublishSubject[T]) HasObservers() bool {
	return ps.ObserverCount() > 0
}

// ObserverCount 获取观察者数量
func (ps *PublishSubject[T]) ObserverCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.observers)
}

// snapshot 复制当前观察者，terminal为true时同时将主题标记为终止并清空观察者
//
// 观察者按订阅顺序返回。主题终止之后返回nil。
func (ps *PublishSubject[T]) snapshot(terminal bool, err error) []Observer[T] {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.done {
		return nil
	}

	observers := make([]Observer[T], len(ps.observers))
	for i, o := range ps.observers {
		observers[i] = o.observer
	}

	if terminal {
		ps.done = true
		ps.err = err
		ps.observers = nil
	}
	return observers
}

type subjectObserver[T any] struct {
	id       uint64
	observer Observer[T]
}
