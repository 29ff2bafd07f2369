// Configuration options for rxbuffer
// 配置选项
package rxbuffer

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option 配置选项
type Option = func(*config)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.SugaredLogger) Option {
	if logger == nil {
		panic("logger can't be nil")
	}
	return func(c *config) {
		c.logger = logger
	}
}

// WithBatchCapacity 设置每个新批次切片的初始容量
func WithBatchCapacity(capacity int) Option {
	if capacity < 0 {
		panic("batch capacity can't be < 0")
	}
	return func(c *config) {
		c.batchCapacity = capacity
	}
}

// WithPrometheus 启用Prometheus指标。registerer为nil时只创建指标，不注册。
func WithPrometheus(registerer prometheus.Registerer, namespace, subsystem string) Option {
	m := newMetrics(registerer, namespace, subsystem)
	return func(c *config) {
		c.metrics = m
	}
}

var (
	nopLogger = zap.NewNop().Sugar()
	// 未注册的共享指标，未配置WithPrometheus时使用
	unregisteredMetrics = newMetrics(nil, "rxbuffer", "")
)

type config struct {
	logger        *zap.SugaredLogger
	batchCapacity int
	metrics       *metrics
}

func newConfig(options ...Option) *config {
	cfg := config{
		logger:  nopLogger,
		metrics: unregisteredMetrics,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	return &cfg
}
