package rxtest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xinjiayu/rxbuffer"
	"github.com/xinjiayu/rxbuffer/internal/marble"
)

// ErrMarble 弹珠图中 # 未指定错误时使用的错误
var ErrMarble = errors.New("marble error")

// Recorded 在某一帧记录到的通知
type Recorded[T any] struct {
	Frame int64
	Item  rxbuffer.Item[T]
}

func (r Recorded[T]) String() string {
	return fmt.Sprintf("%d:%v", r.Frame, r.Item)
}

// Hot 创建热Observable：事件按弹珠图在 ^ 之后的帧发出，与是否有订阅者无关
//
// ^ 之前的事件已经发生过，不会被投递。没有 ^ 时第0个字符就是当前帧。
// values中找不到的键，如果T是string则直接使用键本身。
func Hot[T any](s *Scheduler, diagram string, values map[string]T, err error) rxbuffer.Observable[T] {
	d := marble.MustParse(diagram)
	subject := rxbuffer.NewPublishSubject[T]()
	now := s.Now()

	for _, e := range d.Events {
		if e.Frame < 0 {
			continue
		}
		item := notification(e, values, err)
		s.ScheduleAt(now+int64(e.Frame), func() {
			item.Accept(subject)
		})
	}

	return subject
}

// Cold 创建冷Observable：每次订阅都从订阅所在的帧开始重放弹珠图
func Cold[T any](s *Scheduler, diagram string, values map[string]T, err error) rxbuffer.Observable[T] {
	d := marble.MustParse(diagram)
	if d.Subscribed {
		panic(fmt.Sprintf("rxtest: cold observable %q can't have a subscription point", diagram))
	}

	return rxbuffer.NewObservable(func(observer rxbuffer.Observer[T]) rxbuffer.Disposable {
		start := s.Now()
		scheduled := rxbuffer.NewCompositeDisposable()
		for _, e := range d.Events {
			item := notification(e, values, err)
			scheduled.Add(s.ScheduleAt(start+int64(e.Frame), func() {
				item.Accept(observer)
			}))
		}
		return scheduled
	})
}

// Messages 将期望的弹珠图转换为记录序列，帧从0开始
func Messages[T any](diagram string, values map[string]T, err error) []Recorded[T] {
	d := marble.MustParse(diagram)
	messages := make([]Recorded[T], 0, len(d.Events))
	for _, e := range d.Events {
		messages = append(messages, Recorded[T]{
			Frame: int64(e.Frame),
			Item:  notification(e, values, err),
		})
	}
	return messages
}

func notification[T any](e marble.Event, values map[string]T, err error) rxbuffer.Item[T] {
	switch e.Kind {
	case marble.Error:
		if err == nil {
			err = ErrMarble
		}
		return rxbuffer.ErrorItem[T](err)
	case marble.Complete:
		return rxbuffer.CompleteItem[T]()
	}

	if v, ok := values[e.Key]; ok {
		return rxbuffer.NextItem(v)
	}
	if v, ok := any(e.Key).(T); ok {
		return rxbuffer.NextItem(v)
	}
	panic(fmt.Sprintf("rxtest: no value for marble key %q", e.Key))
}

// ============================================================================
// 记录器
// ============================================================================

// Recorder 记录Observable在虚拟时间中发出的全部通知
//
// Recorder不做任何协议保护，违反协议的调用也会被记录下来。
type Recorder[T any] struct {
	s *Scheduler

	mu           sync.Mutex
	messages     []Recorded[T]
	subscription rxbuffer.Disposable
}

// Record 在当前帧订阅observable并记录通知
func Record[T any](s *Scheduler, observable rxbuffer.Observable[T]) *Recorder[T] {
	r := &Recorder[T]{s: s}
	s.Schedule(func() {
		d := observable.Subscribe(r)
		r.mu.Lock()
		r.subscription = d
		r.mu.Unlock()
	})
	return r
}

// DisposeAt 在指定帧释放订阅
func (r *Recorder[T]) DisposeAt(frame int64) {
	r.s.ScheduleAt(frame, r.Dispose)
}

// Dispose 立即释放订阅
func (r *Recorder[T]) Dispose() {
	r.mu.Lock()
	d := r.subscription
	r.mu.Unlock()
	if d != nil {
		d.Dispose()
	}
}

// Subscription 返回订阅得到的Disposable，尚未订阅时为nil
func (r *Recorder[T]) Subscription() rxbuffer.Disposable {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscription
}

// Messages 返回已记录的通知
func (r *Recorder[T]) Messages() []Recorded[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded[T](nil), r.messages...)
}

func (r *Recorder[T]) record(item rxbuffer.Item[T]) {
	frame := r.s.Now()
	r.mu.Lock()
	r.messages = append(r.messages, Recorded[T]{Frame: frame, Item: item})
	r.mu.Unlock()
}

func (r *Recorder[T]) OnNext(value T)    { r.record(rxbuffer.NextItem(value)) }
func (r *Recorder[T]) OnError(err error) { r.record(rxbuffer.ErrorItem[T](err)) }
func (r *Recorder[T]) OnComplete()       { r.record(rxbuffer.CompleteItem[T]()) }

// ============================================================================
// 断言
// ============================================================================

// Expect 订阅observable，执行全部调度任务，并将记录与期望的弹珠图比较
//
// 错误用errors.Is比较，因此期望的错误必须是上游发出的同一个错误值。
func Expect[T any](t testing.TB, s *Scheduler, observable rxbuffer.Observable[T], diagram string, values map[string]T, err error) {
	t.Helper()

	r := Record(s, observable)
	s.Flush()
	Diff(t, Messages(diagram, values, err), r.Messages())
}

// Diff 比较两组记录，不一致时报告差异
func Diff[T any](t testing.TB, want, got []Recorded[T]) {
	t.Helper()

	if diff := cmp.Diff(want, got, cmpopts.EquateErrors(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("通知不一致 (-want +got):\n%s", diff)
	}
}
