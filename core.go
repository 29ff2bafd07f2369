// Package rxbuffer provides a push-based stream runtime and a boundary-driven buffer operator
// 基于推模型的响应式流运行时，核心是由边界Observable驱动的Buffer操作符
package rxbuffer

import (
	"fmt"
	"time"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// Kind 通知类型
type Kind int

const (
	// KindNext 下一个值
	KindNext Kind = iota
	// KindError 错误终止
	KindError
	// KindComplete 正常完成
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Item 表示流中的一个通知：值、错误或完成
type Item[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// NextItem 创建包含值的通知
func NextItem[T any](value T) Item[T] {
	return Item[T]{Kind: KindNext, Value: value}
}

// ErrorItem 创建错误通知
func ErrorItem[T any](err error) Item[T] {
	return Item[T]{Kind: KindError, Err: err}
}

// CompleteItem 创建完成通知
func CompleteItem[T any]() Item[T] {
	return Item[T]{Kind: KindComplete}
}

// IsTerminal 检查是否为终止通知
func (item Item[T]) IsTerminal() bool {
	return item.Kind != KindNext
}

// Accept 将通知投递给观察者
func (item Item[T]) Accept(observer Observer[T]) {
	switch item.Kind {
	case KindNext:
		observer.OnNext(item.Value)
	case KindError:
		observer.OnError(item.Err)
	case KindComplete:
		observer.OnComplete()
	}
}

func (item Item[T]) String() string {
	switch item.Kind {
	case KindNext:
		return fmt.Sprintf("next(%v)", item.Value)
	case KindError:
		return fmt.Sprintf("error(%v)", item.Err)
	default:
		return item.Kind.String()
	}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// OnNext 处理下一个值的函数
type OnNext[T any] func(value T)

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// ============================================================================
// 生命周期管理
// ============================================================================

// Disposable 可释放资源的接口
//
// Dispose 可以被调用多次，只有第一次生效。
type Disposable interface {
	// Dispose 释放资源
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// ============================================================================
// Observer / Observable 核心接口
// ============================================================================

// Observer 观察者，接收生产者推送的事件
//
// OnError 或 OnComplete 被调用之后，不允许再调用任何方法。
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnComplete()
}

// Observable 可观察序列的核心接口
type Observable[T any] interface {
	// Subscribe 开始向observer投递事件，返回用于取消投递的Disposable。
	// 事件可能在Subscribe返回之前就同步投递完毕，此时返回的Disposable仍然可以安全调用。
	Subscribe(observer Observer[T]) Disposable
}

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口，控制任务执行时机和方式
type Scheduler interface {
	// Schedule 调度一个任务
	Schedule(action func()) Disposable
	// ScheduleWithDelay 延迟调度一个任务
	ScheduleWithDelay(action func(), delay time.Duration) Disposable
}
