package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fishing-borders/internal/compliance"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/metrics"
)

// AlertSink：告警外发通道
type AlertSink interface {
	Name() string
	PublishAlert(ctx context.Context, a compliance.Alert, snap compliance.Snapshot) error
}

type queued struct {
	alert compliance.Alert
	snap  compliance.Snapshot
}

// 文档注释：告警外发队列
// 背景：告警回调在船位分发路径上同步执行，网络 I/O 交给后台协程，避免拖慢判定。
// 约束：队列有界，满时丢弃并计数；单协程按准入顺序外发；每次外发 3s 超时。
type Queue struct {
	sinks   []AlertSink
	ch      chan queued
	log     *slog.Logger
	timeout time.Duration

	once sync.Once
	done chan struct{}
}

func NewQueue(size int, sinks ...AlertSink) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{sinks: sinks, ch: make(chan queued, size), log: logger.Component("notify"), timeout: 3 * time.Second, done: make(chan struct{})}
}

// OnAlert：可直接注册为 alerts.Manager 的回调；不阻塞
func (q *Queue) OnAlert(a compliance.Alert, snap compliance.Snapshot) {
	select {
	case q.ch <- queued{alert: a, snap: snap}:
	default:
		metrics.SinkErrorsTotal.WithLabelValues("queue_full").Inc()
		q.log.Warn("notify_queue_full", "alert", a.ID)
	}
}

// Run：消费队列直到 ctx 结束或 Close
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case it := <-q.ch:
			q.publish(ctx, it)
		}
	}
}

func (q *Queue) publish(ctx context.Context, it queued) {
	for _, s := range q.sinks {
		cctx, cancel := context.WithTimeout(ctx, q.timeout)
		err := s.PublishAlert(cctx, it.alert, it.snap)
		cancel()
		if err != nil {
			metrics.SinkErrorsTotal.WithLabelValues(s.Name()).Inc()
			q.log.Error("notify_publish_error", "sink", s.Name(), "alert", it.alert.ID, "err", err)
			continue
		}
		q.log.Debug("notify_publish_ok", "sink", s.Name(), "alert", it.alert.ID)
	}
}

func (q *Queue) Close() { q.once.Do(func() { close(q.done) }) }
