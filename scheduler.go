// Scheduler implementations for rxbuffer
// 调度器实现：立即调度、蹦床调度、新线程调度
package rxbuffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// scheduledTask 一个可取消的调度任务
type scheduledTask struct {
	action    func()
	cancelled atomic.Bool
	stop      func() bool
}

func (t *scheduledTask) run() {
	if !t.cancelled.Load() {
		t.action()
	}
}

// Dispose 取消任务，已经开始执行的任务不受影响
func (t *scheduledTask) Dispose() {
	if t.cancelled.CompareAndSwap(false, true) && t.stop != nil {
		t.stop()
	}
}

// IsDisposed 检查任务是否已取消
func (t *scheduledTask) IsDisposed() bool {
	return t.cancelled.Load()
}

// afterFunc 在delay之后通过schedule执行action
func afterFunc(delay time.Duration, action func(), schedule func(task *scheduledTask)) Disposable {
	task := &scheduledTask{action: action}
	timer := time.AfterFunc(delay, func() { schedule(task) })
	task.stop = timer.Stop
	return task
}

// ============================================================================
// 立即调度器 - Immediate Scheduler
// ============================================================================

// immediateScheduler 立即在当前goroutine中执行任务
type immediateScheduler struct{}

// NewImmediateScheduler 创建立即调度器
func NewImmediateScheduler() Scheduler {
	return immediateScheduler{}
}

// Schedule 立即执行任务
func (immediateScheduler) Schedule(action func()) Disposable {
	action()
	return Disposed()
}

// ScheduleWithDelay 延迟执行任务，到期时在定时器的goroutine中执行
func (immediateScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	return afterFunc(delay, action, (*scheduledTask).run)
}

// ============================================================================
// 蹦床调度器 - Trampoline Scheduler
// ============================================================================

// TrampolineScheduler 在调用者的goroutine中按顺序执行任务
//
// 如果Schedule在另一个任务执行期间被调用（重入，或来自其他goroutine），任务只入队，
// 由当前正在排空队列的调用者依次执行。同一时刻最多只有一个任务在执行。
type TrampolineScheduler struct {
	mu       sync.Mutex
	queue    []*scheduledTask
	draining bool
}

// NewTrampolineScheduler 创建蹦床调度器
func NewTrampolineScheduler() *TrampolineScheduler {
	return &TrampolineScheduler{}
}

// Schedule 调度任务，必要时在当前goroutine中排空队列
func (s *TrampolineScheduler) Schedule(action func()) Disposable {
	task := &scheduledTask{action: action}
	s.enqueue(task)
	return task
}

// ScheduleWithDelay 延迟调度任务
func (s *TrampolineScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	return afterFunc(delay, action, s.enqueue)
}

// IsDraining 检查是否有任务正在执行
func (s *TrampolineScheduler) IsDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

func (s *TrampolineScheduler) enqueue(task *scheduledTask) {
	s.mu.Lock()
	s.queue = append(s.queue, task)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	s.drain()
}

// drain 处理队列中的任务
func (s *TrampolineScheduler) drain() {
	defer func() {
		if r := recover(); r != nil {
			// 剩余任务留给下一次Schedule
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		task.run()
	}
}

// ============================================================================
// 新线程调度器 - New Thread Scheduler
// ============================================================================

// newThreadScheduler 每个任务在新的goroutine中执行
type newThreadScheduler struct{}

// NewNewThreadScheduler 创建新线程调度器
func NewNewThreadScheduler() Scheduler {
	return newThreadScheduler{}
}

// Schedule 在新的goroutine中执行任务
func (newThreadScheduler) Schedule(action func()) Disposable {
	task := &scheduledTask{action: action}
	go task.run()
	return task
}

// ScheduleWithDelay 延迟执行任务
func (newThreadScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	return afterFunc(delay, action, (*scheduledTask).run)
}

// ============================================================================
// 默认调度器
// ============================================================================

var (
	// ImmediateScheduler 立即调度器实例
	ImmediateScheduler Scheduler = NewImmediateScheduler()

	// NewThreadScheduler 新线程调度器实例
	NewThreadScheduler Scheduler = NewNewThreadScheduler()
)
