// Boundary-driven buffer operator for rxbuffer
// 由边界Observable驱动的Buffer操作符
package rxbuffer

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// 组合终止控制器
// ============================================================================

// compositeTermination 持有两个上游订阅和一次性的终止标志
//
// terminated只会从false变为true一次；变化时两个上游订阅都被释放。
// 尚未赋值的上游订阅在赋值时若已终止会被立即释放。
type compositeTermination struct {
	terminated atomic.Bool
	upstreams  *CompositeDisposable
}

func newCompositeTermination() *compositeTermination {
	return &compositeTermination{upstreams: NewCompositeDisposable()}
}

// add 登记一个上游订阅
func (c *compositeTermination) add(d Disposable) {
	c.upstreams.Add(d)
}

// terminateOnce 首次调用时释放上游并执行effect，返回是否为首次调用
func (c *compositeTermination) terminateOnce(effect func()) bool {
	if !c.terminated.CompareAndSwap(false, true) {
		return false
	}
	c.upstreams.Dispose()
	if effect != nil {
		effect()
	}
	return true
}

func (c *compositeTermination) isTerminated() bool {
	return c.terminated.Load()
}

// ============================================================================
// Buffer 操作符
// ============================================================================

// Buffer 将source的值收集到批次中，每当notifier发出值时向下游发出当前批次并开启新批次
//
// notifier的值本身被忽略，只有它的出现有意义。任一上游完成或出错时，输出立即以相同的方式
// 终止，尚未发出的批次被丢弃，不做最后一次发出。释放返回的Disposable会静默地取消两个上游。
func Buffer[T, U any](source Observable[T], notifier Observable[U], options ...Option) Observable[[]T] {
	cfg := newConfig(options...)
	return NewObservable(func(observer Observer[[]T]) Disposable {
		s := newBufferSubscription(observer, cfg)
		// 即使source在订阅期间就已终止，也要尝试订阅notifier；此时它会被立即释放
		s.term.add(source.Subscribe(sourceObserver[T]{s}))
		s.term.add(notifier.Subscribe(boundaryObserver[T, U]{s}))
		return s
	}, options...)
}

// BufferWithTime 每隔timespan发出一次当前批次，定时由scheduler驱动
func BufferWithTime[T any](source Observable[T], timespan time.Duration, scheduler Scheduler, options ...Option) Observable[[]T] {
	return Buffer(source, Interval(scheduler, timespan), options...)
}

// bufferSubscription 一次Buffer订阅的状态
//
// 所有上游信号都经由serial串行处理，pending只在serial的任务中访问。
type bufferSubscription[T any] struct {
	downstream Observer[[]T]
	term       *compositeTermination
	serial     *TrampolineScheduler
	pending    []T
	capacity   int
	metrics    *metrics
	logger     *zap.SugaredLogger
}

func newBufferSubscription[T any](downstream Observer[[]T], cfg *config) *bufferSubscription[T] {
	s := &bufferSubscription[T]{
		downstream: downstream,
		term:       newCompositeTermination(),
		serial:     NewTrampolineScheduler(),
		pending:    make([]T, 0, cfg.batchCapacity),
		capacity:   cfg.batchCapacity,
		metrics:    cfg.metrics,
		logger:     cfg.logger,
	}
	s.metrics.activeSubscriptions.Inc()
	s.logger.Debugw("buffer subscribed")
	return s
}

// push 将值追加到当前批次
func (s *bufferSubscription[T]) push(value T) {
	s.serial.Schedule(func() {
		if s.term.isTerminated() {
			return
		}
		s.pending = append(s.pending, value)
		s.metrics.itemsBuffered.Inc()
	})
}

// flush 向下游发出当前批次，并换上一个新的空批次
func (s *bufferSubscription[T]) flush() {
	s.serial.Schedule(func() {
		if s.term.isTerminated() {
			return
		}
		batch := s.pending
		s.pending = make([]T, 0, s.capacity)

		s.metrics.batchesEmitted.Inc()
		s.metrics.itemsEmitted.Add(float64(len(batch)))
		s.metrics.batchSize.Observe(float64(len(batch)))
		s.downstream.OnNext(batch)
	})
}

// terminate 终止订阅并向下游转发终止事件，err为nil表示完成
func (s *bufferSubscription[T]) terminate(cause string, err error) {
	s.serial.Schedule(func() {
		s.term.terminateOnce(func() {
			s.discard(cause)
			if err != nil {
				s.downstream.OnError(err)
			} else {
				s.downstream.OnComplete()
			}
		})
	})
}

// discard 丢弃未发出的批次，只能在serial的任务中调用
func (s *bufferSubscription[T]) discard(cause string) {
	discarded := len(s.pending)
	s.pending = nil

	s.metrics.itemsDiscarded.Add(float64(discarded))
	s.metrics.terminations.WithLabelValues(cause).Inc()
	s.metrics.activeSubscriptions.Dec()
	s.logger.Debugw("buffer terminated", "cause", cause, "discarded", discarded)
}

// Dispose 静默取消订阅，不通知下游
func (s *bufferSubscription[T]) Dispose() {
	s.term.terminateOnce(func() {
		// pending归serial所有，这里只记录取消
		s.metrics.terminations.WithLabelValues(causeCancel).Inc()
		s.metrics.activeSubscriptions.Dec()
		s.logger.Debugw("buffer terminated", "cause", causeCancel)
	})
}

// IsDisposed 检查订阅是否已终止
func (s *bufferSubscription[T]) IsDisposed() bool {
	return s.term.isTerminated()
}

// sourceObserver 订阅source的观察者
type sourceObserver[T any] struct {
	s *bufferSubscription[T]
}

func (o sourceObserver[T]) OnNext(value T) { o.s.push(value) }

func (o sourceObserver[T]) OnError(err error) { o.s.terminate(causeSourceError, err) }

func (o sourceObserver[T]) OnComplete() { o.s.terminate(causeSourceComplete, nil) }

// boundaryObserver 订阅notifier的观察者
type boundaryObserver[T, U any] struct {
	s *bufferSubscription[T]
}

func (o boundaryObserver[T, U]) OnNext(U) { o.s.flush() }

func (o boundaryObserver[T, U]) OnError(err error) { o.s.terminate(causeNotifierError, err) }

func (o boundaryObserver[T, U]) OnComplete() { o.s.terminate(causeNotifierComplete, nil) }
