package rxbuffer_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/xinjiayu/rxbuffer"
)

// ============================================================================
// 测试辅助
// ============================================================================

// collector 记录收到的所有事件，不做任何协议保护
type collector[T any] struct {
	mu     sync.Mutex
	items  []rxbuffer.Item[T]
	onNext func(T)
}

func (c *collector[T]) OnNext(value T) {
	c.mu.Lock()
	c.items = append(c.items, rxbuffer.NextItem(value))
	c.mu.Unlock()
	if c.onNext != nil {
		c.onNext(value)
	}
}

func (c *collector[T]) OnError(err error) {
	c.mu.Lock()
	c.items = append(c.items, rxbuffer.ErrorItem[T](err))
	c.mu.Unlock()
}

func (c *collector[T]) OnComplete() {
	c.mu.Lock()
	c.items = append(c.items, rxbuffer.CompleteItem[T]())
	c.mu.Unlock()
}

func (c *collector[T]) Items() []rxbuffer.Item[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]rxbuffer.Item[T](nil), c.items...)
}

// rawObservable 记录订阅者和释放次数的Observable，不做协议保护
type rawObservable[T any] struct {
	mu          sync.Mutex
	observers   []rxbuffer.Observer[T]
	disposed    atomic.Int32
	subscribed  atomic.Int32
	onSubscribe func(rxbuffer.Observer[T])
}

func (r *rawObservable[T]) Subscribe(observer rxbuffer.Observer[T]) rxbuffer.Disposable {
	r.subscribed.Add(1)
	r.mu.Lock()
	r.observers = append(r.observers, observer)
	r.mu.Unlock()
	if r.onSubscribe != nil {
		r.onSubscribe(observer)
	}
	return rxbuffer.NewDisposable(func() { r.disposed.Add(1) })
}

func (r *rawObservable[T]) observer(t *testing.T) rxbuffer.Observer[T] {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.observers) != 1 {
		t.Fatalf("期望1个订阅者，实际有%d个", len(r.observers))
	}
	return r.observers[0]
}

func diffItems[T any](t *testing.T, want, got []rxbuffer.Item[T]) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmp.Comparer(func(x, y error) bool { return x == y })); diff != "" {
		t.Errorf("事件不一致 (-want +got):\n%s", diff)
	}
}

// ============================================================================
// 终止与取消
// ============================================================================

// TestBufferDisposeIsIdempotentAndSilent 重复释放与释放一次效果相同，且不通知下游
func TestBufferDisposeIsIdempotentAndSilent(t *testing.T) {
	source := rxbuffer.NewPublishSubject[string]()
	notifier := rxbuffer.NewPublishSubject[int]()
	c := &collector[[]string]{}

	subscription := rxbuffer.Buffer[string, int](source, notifier).Subscribe(c)
	source.OnNext("a")
	notifier.OnNext(1)

	subscription.Dispose()
	subscription.Dispose()

	if !subscription.IsDisposed() {
		t.Error("订阅应该已被释放")
	}
	if source.HasObservers() || notifier.HasObservers() {
		t.Error("释放之后上游不应再有观察者")
	}

	source.OnNext("b")
	notifier.OnNext(2)
	source.OnComplete()

	diffItems(t, []rxbuffer.Item[[]string]{
		rxbuffer.NextItem([]string{"a"}),
	}, c.Items())
}

// TestBufferIgnoresMisbehavingUpstreams 终止之后上游的任何调用都不会到达下游
func TestBufferIgnoresMisbehavingUpstreams(t *testing.T) {
	source := &rawObservable[string]{}
	notifier := &rawObservable[int]{}
	c := &collector[[]string]{}

	rxbuffer.Buffer[string, int](source, notifier).Subscribe(c)
	src := source.observer(t)
	ntf := notifier.observer(t)

	src.OnNext("a")
	ntf.OnNext(0)
	src.OnNext("b")
	src.OnComplete()

	src.OnNext("c")
	src.OnError(errors.New("late"))
	src.OnComplete()
	ntf.OnNext(1)
	ntf.OnError(errors.New("late"))
	ntf.OnComplete()

	diffItems(t, []rxbuffer.Item[[]string]{
		rxbuffer.NextItem([]string{"a"}),
		rxbuffer.CompleteItem[[]string](),
	}, c.Items())

	if n := source.disposed.Load(); n != 1 {
		t.Errorf("source应该被释放1次，实际%d次", n)
	}
	if n := notifier.disposed.Load(); n != 1 {
		t.Errorf("notifier应该被释放1次，实际%d次", n)
	}
}

type identityError struct{ msg string }

func (e *identityError) Error() string { return e.msg }

// TestBufferForwardsSameError 上游的错误值原样转发
func TestBufferForwardsSameError(t *testing.T) {
	for _, tc := range []struct {
		name string
		fail func(source *rxbuffer.PublishSubject[int], notifier *rxbuffer.PublishSubject[int], err error)
	}{
		{
			name: "source",
			fail: func(source, _ *rxbuffer.PublishSubject[int], err error) { source.OnError(err) },
		},
		{
			name: "notifier",
			fail: func(_, notifier *rxbuffer.PublishSubject[int], err error) { notifier.OnError(err) },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			source := rxbuffer.NewPublishSubject[int]()
			notifier := rxbuffer.NewPublishSubject[int]()
			err := &identityError{msg: "boom"}

			var got error
			rxbuffer.SubscribeWithCallbacks(rxbuffer.Buffer[int, int](source, notifier),
				func([]int) {},
				func(e error) { got = e },
				func() { t.Error("不应该完成") },
			)

			source.OnNext(1)
			tc.fail(source, notifier, err)

			if got != error(err) {
				t.Errorf("期望错误%p，实际得到%v", err, got)
			}
		})
	}
}

// ============================================================================
// 批次
// ============================================================================

// TestBufferEmptyBatchIsNotNil 没有值时边界发出空批次
func TestBufferEmptyBatchIsNotNil(t *testing.T) {
	source := rxbuffer.NewPublishSubject[string]()
	notifier := rxbuffer.NewPublishSubject[struct{}]()

	var batches [][]string
	rxbuffer.SubscribeWithCallbacks(rxbuffer.Buffer[string, struct{}](source, notifier),
		func(batch []string) { batches = append(batches, batch) }, nil, nil)

	notifier.OnNext(struct{}{})

	if len(batches) != 1 {
		t.Fatalf("期望1个批次，实际得到%d个", len(batches))
	}
	if batches[0] == nil || len(batches[0]) != 0 {
		t.Errorf("期望非nil的空批次，实际得到%#v", batches[0])
	}
}

// TestBufferBatchesAreNotAliased 已发出的批次不会被之后的值修改
func TestBufferBatchesAreNotAliased(t *testing.T) {
	source := rxbuffer.NewPublishSubject[int]()
	notifier := rxbuffer.NewPublishSubject[int]()

	var batches [][]int
	rxbuffer.SubscribeWithCallbacks(
		rxbuffer.Buffer[int, int](source, notifier, rxbuffer.WithBatchCapacity(8)),
		func(batch []int) { batches = append(batches, batch) }, nil, nil)

	source.OnNext(1)
	source.OnNext(2)
	notifier.OnNext(0)
	source.OnNext(3)
	source.OnNext(4)
	source.OnNext(5)
	notifier.OnNext(0)

	want := [][]int{{1, 2}, {3, 4, 5}}
	if diff := cmp.Diff(want, batches); diff != "" {
		t.Errorf("批次不一致 (-want +got):\n%s", diff)
	}
}

// ============================================================================
// 同步与重入
// ============================================================================

// TestBufferSynchronousNotifier notifier在订阅期间同步发出值并完成
func TestBufferSynchronousNotifier(t *testing.T) {
	c := &collector[[]string]{}
	rxbuffer.Buffer(rxbuffer.Never[string](), rxbuffer.Just(1, 2)).Subscribe(c)

	diffItems(t, []rxbuffer.Item[[]string]{
		rxbuffer.NextItem([]string{}),
		rxbuffer.NextItem([]string{}),
		rxbuffer.CompleteItem[[]string](),
	}, c.Items())
}

// TestBufferSynchronousSourceCompletion source在订阅期间完成时notifier订阅后立即被释放
func TestBufferSynchronousSourceCompletion(t *testing.T) {
	notifier := &rawObservable[int]{
		onSubscribe: func(o rxbuffer.Observer[int]) { o.OnNext(0) },
	}
	c := &collector[[]string]{}

	subscription := rxbuffer.Buffer[string, int](rxbuffer.Just("a", "b"), notifier).Subscribe(c)

	diffItems(t, []rxbuffer.Item[[]string]{
		rxbuffer.CompleteItem[[]string](),
	}, c.Items())

	if n := notifier.subscribed.Load(); n != 1 {
		t.Errorf("notifier应该被订阅1次，实际%d次", n)
	}
	if n := notifier.disposed.Load(); n != 1 {
		t.Errorf("notifier应该被释放1次，实际%d次", n)
	}
	if !subscription.IsDisposed() {
		t.Error("订阅应该已经终止")
	}
	subscription.Dispose()
}

// TestBufferReentrantFlush 下游在OnNext中触发上游事件，事件在OnNext返回后按顺序处理
func TestBufferReentrantFlush(t *testing.T) {
	source := rxbuffer.NewPublishSubject[string]()
	notifier := rxbuffer.NewPublishSubject[int]()

	var (
		depth    int
		maxDepth int
	)
	c := &collector[[]string]{}
	c.onNext = func(batch []string) {
		depth++
		defer func() { depth-- }()
		if depth > maxDepth {
			maxDepth = depth
		}
		if len(batch) == 1 && batch[0] == "a" {
			source.OnNext("x")
			notifier.OnNext(0)
			source.OnNext("y")
		}
	}

	rxbuffer.Buffer[string, int](source, notifier).Subscribe(c)
	source.OnNext("a")
	notifier.OnNext(0)
	notifier.OnNext(0)

	diffItems(t, []rxbuffer.Item[[]string]{
		rxbuffer.NextItem([]string{"a"}),
		rxbuffer.NextItem([]string{"x"}),
		rxbuffer.NextItem([]string{"y"}),
	}, c.Items())

	if maxDepth != 1 {
		t.Errorf("下游不应被重入调用，最大深度%d", maxDepth)
	}
}

// TestBufferReentrantDispose 下游在OnNext中取消订阅
func TestBufferReentrantDispose(t *testing.T) {
	source := rxbuffer.NewPublishSubject[string]()
	notifier := rxbuffer.NewPublishSubject[int]()

	var subscription rxbuffer.Disposable
	c := &collector[[]string]{}
	c.onNext = func([]string) {
		subscription.Dispose()
		notifier.OnNext(0)
	}

	subscription = rxbuffer.Buffer[string, int](source, notifier).Subscribe(c)
	source.OnNext("a")
	notifier.OnNext(0)
	source.OnComplete()

	diffItems(t, []rxbuffer.Item[[]string]{
		rxbuffer.NextItem([]string{"a"}),
	}, c.Items())
}

// ============================================================================
// 并发
// ============================================================================

// TestBufferConcurrentUpstreams 上游来自不同goroutine时，批次保持顺序且终止后没有事件
func TestBufferConcurrentUpstreams(t *testing.T) {
	const n = 10000

	source := rxbuffer.NewPublishSubject[int]()
	notifier := rxbuffer.NewPublishSubject[struct{}]()

	var (
		mu         sync.Mutex
		values     []int
		terminals  int
		afterFinal int
		done       = make(chan struct{})
	)
	rxbuffer.Buffer[int, struct{}](source, notifier).Subscribe(&collectorFunc[[]int]{
		next: func(batch []int) {
			mu.Lock()
			defer mu.Unlock()
			if terminals > 0 {
				afterFinal++
			}
			values = append(values, batch...)
		},
		terminal: func() {
			mu.Lock()
			defer mu.Unlock()
			terminals++
			if terminals == 1 {
				close(done)
			}
		},
	})

	var finished atomic.Bool
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer finished.Store(true)
		for i := range n {
			source.OnNext(i)
		}
		source.OnComplete()
		return nil
	})
	g.Go(func() error {
		for !finished.Load() {
			notifier.OnNext(struct{}{})
			runtime.Gosched()
		}
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("等待终止超时")
	}

	mu.Lock()
	defer mu.Unlock()
	if terminals != 1 || afterFinal != 0 {
		t.Errorf("期望1个终止事件且之后没有值，实际终止%d次，之后%d个值", terminals, afterFinal)
	}
	if len(values) > n {
		t.Fatalf("发出的值多于输入: %d", len(values))
	}
	for i, v := range values {
		if v != i {
			t.Fatalf("索引%d处期望%d，实际得到%d", i, i, v)
		}
	}
}

type collectorFunc[T any] struct {
	next     func(T)
	terminal func()
}

func (c *collectorFunc[T]) OnNext(value T) { c.next(value) }
func (c *collectorFunc[T]) OnError(error)  { c.terminal() }
func (c *collectorFunc[T]) OnComplete()    { c.terminal() }
