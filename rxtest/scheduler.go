// Package rxtest drives rxbuffer streams in virtual time from marble diagrams.
// 虚拟时间测试调度器与弹珠图测试工具
package rxtest

import (
	"sync"
	"time"

	"github.com/xinjiayu/rxbuffer"
)

// FrameDuration 一帧对应的时长，ScheduleWithDelay据此换算帧数
const FrameDuration = time.Millisecond

// DefaultMaxFrame Flush默认推进到的最大帧
const DefaultMaxFrame = 1000

// Scheduler 用于测试的调度器，时间以帧计，只能手动推进
//
// 同一帧内的任务按调度顺序执行。
type Scheduler struct {
	// MaxFrame Flush执行的最后一帧，防止周期任务无限执行
	MaxFrame int64

	mu    sync.Mutex
	clock int64
	queue []*virtualAction
}

// virtualAction 调度在某一帧的动作
type virtualAction struct {
	frame  int64
	action func()
	rxbuffer.Disposable
}

// NewScheduler 创建测试调度器
func NewScheduler() *Scheduler {
	return &Scheduler{MaxFrame: DefaultMaxFrame}
}

var _ rxbuffer.Scheduler = (*Scheduler)(nil)

// Now 获取当前帧
func (s *Scheduler) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Schedule 在当前帧调度任务
func (s *Scheduler) Schedule(action func()) rxbuffer.Disposable {
	return s.ScheduleAt(s.Now(), action)
}

// ScheduleWithDelay 延迟调度任务，不足一帧的延迟按一帧计算
func (s *Scheduler) ScheduleWithDelay(action func(), delay time.Duration) rxbuffer.Disposable {
	frames := int64(delay / FrameDuration)
	if frames < 1 {
		frames = 1
	}
	return s.ScheduleAt(s.Now()+frames, action)
}

// ScheduleAt 在指定帧调度任务
func (s *Scheduler) ScheduleAt(frame int64, action func()) rxbuffer.Disposable {
	va := &virtualAction{
		frame:      frame,
		action:     action,
		Disposable: rxbuffer.NewDisposable(nil),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 插入到同一帧已有任务之后，保持时间顺序
	i := len(s.queue)
	for j, existing := range s.queue {
		if frame < existing.frame {
			i = j
			break
		}
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = va

	return va
}

// AdvanceTo 推进时间到指定帧，执行该帧及之前的全部任务
func (s *Scheduler) AdvanceTo(frame int64) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].frame > frame {
			if s.clock < frame {
				s.clock = frame
			}
			s.mu.Unlock()
			return
		}

		va := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		if va.frame > s.clock {
			s.clock = va.frame
		}
		s.mu.Unlock()

		// 解锁以允许action执行时调度新任务
		if !va.IsDisposed() {
			va.action()
		}
	}
}

// AdvanceBy 推进指定帧数
func (s *Scheduler) AdvanceBy(frames int64) {
	s.AdvanceTo(s.Now() + frames)
}

// Flush 执行所有不晚于MaxFrame的任务
func (s *Scheduler) Flush() {
	s.AdvanceTo(s.MaxFrame)
}
