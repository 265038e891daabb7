package location

import (
	"context"
	"sync"
	"time"
)

// 文档注释：设备上报定位提供方
// 背景：船载终端/手机通过 HTTP 周期上报 GPS 样本，服务端以此作为持续定位来源。
// 约束：队列有界（满时丢弃最旧）；监听时丢弃超过 MaximumAge 的陈旧样本；授权状态由设备声明。
type PushProvider struct {
	now func() time.Time

	mu         sync.Mutex
	latest     *Sample
	updated    chan struct{}
	queue      chan Sample
	permission Permission
}

func NewPushProvider(queueSize int) *PushProvider {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &PushProvider{
		now:        time.Now,
		updated:    make(chan struct{}),
		queue:      make(chan Sample, queueSize),
		permission: PermissionPrompt,
	}
}

func (p *PushProvider) Name() string    { return "push" }
func (p *PushProvider) Available() bool { return true }

// Push：接收一条设备样本；CapturedAt 缺失时以接收时间补齐
func (p *PushProvider) Push(s Sample) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.CapturedAt.IsZero() {
		s.CapturedAt = p.now()
	}
	if s.Source == "" {
		s.Source = p.Name()
	}
	p.mu.Lock()
	cp := s
	p.latest = &cp
	p.permission = PermissionGranted
	close(p.updated)
	p.updated = make(chan struct{})
	p.mu.Unlock()
	for {
		select {
		case p.queue <- s:
			return nil
		default:
		}
		select {
		case <-p.queue:
		default:
		}
	}
}

// SetPermission：设备上报授权状态（例如用户在系统设置中关闭定位）
func (p *PushProvider) SetPermission(perm Permission) {
	p.mu.Lock()
	p.permission = perm
	p.mu.Unlock()
}

func (p *PushProvider) Permission(ctx context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

// Current：最近样本未过期则直接返回，否则等待下一次上报直到超时
func (p *PushProvider) Current(ctx context.Context, opts Options) (Sample, error) {
	for {
		p.mu.Lock()
		if p.permission == PermissionDenied {
			p.mu.Unlock()
			return Sample{}, &PositionError{Code: CodePermissionDenied, Message: "device reported location permission denied"}
		}
		if p.latest != nil && p.now().Sub(p.latest.CapturedAt) <= opts.MaximumAge {
			s := *p.latest
			p.mu.Unlock()
			return s, nil
		}
		wait := p.updated
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return Sample{}, &PositionError{Code: CodeTimeout, Message: ctx.Err().Error()}
		case <-wait:
		}
	}
}

// Watch：持续消费上报队列直到 ctx 结束
func (p *PushProvider) Watch(ctx context.Context, opts Options, emit func(Sample, error)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-p.queue:
			if opts.MaximumAge > 0 && p.now().Sub(s.CapturedAt) > opts.MaximumAge {
				continue
			}
			emit(s, nil)
		}
	}
}
