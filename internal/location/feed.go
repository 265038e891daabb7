package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fishing-borders/internal/logger"
	"fishing-borders/internal/metrics"
)

// Subscriber：样本与错误共用同一通道；成功时 err 为 nil，失败时 s 为 nil
type Subscriber func(s *Sample, err error)

type subscription struct {
	id uint64
	fn Subscriber
}

// TrackingStatus：跟踪状态快照
type TrackingStatus struct {
	Tracking    bool       `json:"tracking"`
	HasLocation bool       `json:"has_location"`
	LastUpdate  *time.Time `json:"last_update,omitempty"`
	AccuracyM   *float64   `json:"accuracy_m,omitempty"`
	Provider    string     `json:"provider"`
}

// EmergencyLocation：仅含船位的求救数据
type EmergencyLocation struct {
	Location  Sample    `json:"location"`
	Type      string    `json:"type"`
	AccuracyM float64   `json:"accuracy_m"`
	CreatedAt time.Time `json:"created_at"`
}

// 文档注释：船位数据流（Idle ⇄ Tracking）
// 背景：包装定位提供方的单次与持续定位，归一化为 Sample 并按注册顺序同步分发给订阅者；新订阅者立即收到最近一次样本。
// 约束：同一时刻只有一次分发在进行（deliverMu 串行化），保证上层判定不会交错；
// StopTracking 返回后不会再开始任何订阅回调（每次回调前在 mu 下检查运行代次），且可在回调内部调用；
// 订阅者内部不得再触发分发。
type Feed struct {
	provider Provider
	opts     Options
	log      *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	tracking bool
	run      uint64
	cancel   context.CancelFunc
	current  *Sample
	subs     []subscription
	nextID   uint64

	deliverMu sync.Mutex
}

func NewFeed(p Provider, opts Options) *Feed {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaximumAge < 0 {
		opts.MaximumAge = 0
	}
	return &Feed{provider: p, opts: opts, log: logger.Component("location"), now: time.Now}
}

func (f *Feed) supported() bool { return f.provider != nil && f.provider.Available() }

func (f *Feed) providerName() string {
	if f.provider == nil {
		return "none"
	}
	return f.provider.Name()
}

// 文档注释：开始持续定位
// 背景：先取一次初始定位，再进入持续监听；二者都在同一后台协程中串行分发。
// 约束：平台不支持返回 ErrUnsupported；已在跟踪时仅记录日志并返回 nil。
func (f *Feed) StartTracking() error {
	if !f.supported() {
		return ErrUnsupported
	}
	f.mu.Lock()
	if f.tracking {
		f.mu.Unlock()
		f.log.Info("location_tracking_already_started")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.tracking = true
	f.run++
	run := f.run
	f.cancel = cancel
	f.mu.Unlock()

	go f.track(ctx, run)
	f.log.Info("location_tracking_started", "provider", f.providerName())
	return nil
}

func (f *Feed) track(ctx context.Context, run uint64) {
	var last time.Time
	cctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	s, err := f.provider.Current(cctx, f.opts)
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		f.deliver(run, nil, MapError(err))
	} else {
		last = s.CapturedAt
		f.deliver(run, &s, nil)
	}
	err = f.provider.Watch(ctx, f.opts, func(s Sample, err error) {
		if err != nil {
			f.deliver(run, nil, MapError(err))
			return
		}
		// 初始定位可能在持续监听中再次出现
		if !last.IsZero() && !s.CapturedAt.After(last) {
			return
		}
		last = s.CapturedAt
		f.deliver(run, &s, nil)
	})
	if err != nil && ctx.Err() == nil {
		f.deliver(run, nil, MapError(err))
	}
}

// StopTracking：停止持续定位；幂等
func (f *Feed) StopTracking() {
	f.mu.Lock()
	was := f.tracking
	f.tracking = false
	f.run++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()
	if was {
		f.log.Info("location_tracking_stopped")
	}
}

// IsTracking：是否处于持续定位状态
func (f *Feed) IsTracking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracking
}

// active：运行代次未变且订阅仍在
func (f *Feed) active(run, subID uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tracking || f.run != run {
		return false
	}
	if subID == 0 {
		return true
	}
	for _, s := range f.subs {
		if s.id == subID {
			return true
		}
	}
	return false
}

func (f *Feed) deliver(run uint64, s *Sample, err error) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	if !f.tracking || f.run != run {
		f.mu.Unlock()
		return
	}
	moved := -1.0
	if s != nil {
		if f.current != nil {
			moved = Distance(f.current.Lat, f.current.Lng, s.Lat, s.Lng)
		}
		cp := *s
		f.current = &cp
	}
	subs := append([]subscription(nil), f.subs...)
	f.mu.Unlock()

	if err != nil {
		metrics.LocationErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		f.log.Warn("location_error", "err", err)
	} else {
		metrics.LocationSamplesTotal.WithLabelValues(f.providerName()).Inc()
		f.log.Debug("location_update", "lat", s.Lat, "lng", s.Lng, "accuracy_m", s.AccuracyM, "moved_m", moved)
	}
	for _, sub := range subs {
		if !f.active(run, sub.id) {
			continue
		}
		var cp *Sample
		if s != nil {
			v := *s
			cp = &v
		}
		f.invoke(sub, cp, err)
	}
}

func (f *Feed) invoke(sub subscription, s *Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("location_subscriber_panic", "subscriber", sub.id, "panic", fmt.Sprint(r))
		}
	}()
	sub.fn(s, err)
}

// 文档注释：注册船位订阅
// 背景：若已有当前样本，注册后立即回调一次（回放最近值）；返回取消函数，重复调用无副作用。
// 约束：注册与回放在 deliverMu 内完成，与正常分发串行，订阅者不会先收到新样本再收到回放的旧样本；
// 因此不得在订阅回调内部注册新的订阅。
func (f *Feed) OnLocationUpdate(fn Subscriber) (unsubscribe func()) {
	f.deliverMu.Lock()
	f.mu.Lock()
	f.nextID++
	sub := subscription{id: f.nextID, fn: fn}
	f.subs = append(f.subs, sub)
	var cur *Sample
	if f.current != nil {
		v := *f.current
		cur = &v
	}
	f.mu.Unlock()
	if cur != nil {
		f.invoke(sub, cur, nil)
	}
	f.deliverMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.subs {
				if s.id == sub.id {
					f.subs = append(f.subs[:i], f.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// 文档注释：单次定位
// 背景：不改变跟踪状态，也不通知订阅者；错误映射为 拒绝/不可用/超时。
func (f *Feed) GetCurrentLocation(ctx context.Context) (Sample, error) {
	if !f.supported() {
		return Sample{}, ErrUnsupported
	}
	cctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()
	s, err := f.provider.Current(cctx, f.opts)
	if err != nil {
		err = MapError(err)
		metrics.LocationErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return Sample{}, err
	}
	return s, nil
}

// GetPermissionStatus：查询授权状态；无提供方时为 unknown
func (f *Feed) GetPermissionStatus(ctx context.Context) Permission {
	if f.provider == nil {
		return PermissionUnknown
	}
	p := f.provider.Permission(ctx)
	switch p {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return p
	}
	return PermissionUnknown
}

// 文档注释：请求定位授权
// 背景：已拒绝直接返回错误；已授权返回 nil；待询问时尝试一次单次定位以触发授权。
func (f *Feed) RequestPermission(ctx context.Context) error {
	switch f.GetPermissionStatus(ctx) {
	case PermissionDenied:
		return ErrPermissionDenied
	case PermissionGranted:
		return nil
	}
	if _, err := f.GetCurrentLocation(ctx); err != nil {
		return fmt.Errorf("request location permission: %w", err)
	}
	return nil
}

// Current：最近一次样本
func (f *Feed) Current() (Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return Sample{}, false
	}
	return *f.current, true
}

// TrackingStatus：跟踪状态
func (f *Feed) TrackingStatus() TrackingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := TrackingStatus{Tracking: f.tracking, HasLocation: f.current != nil, Provider: f.providerName()}
	if f.current != nil {
		t := f.current.CapturedAt
		a := f.current.AccuracyM
		st.LastUpdate = &t
		st.AccuracyM = &a
	}
	return st
}

// EmergencyLocation：求救船位数据；无当前定位时返回 ErrLocationUnavailable
func (f *Feed) EmergencyLocation() (EmergencyLocation, error) {
	s, ok := f.Current()
	if !ok {
		return EmergencyLocation{}, ErrLocationUnavailable
	}
	return EmergencyLocation{Location: s, Type: "emergency", AccuracyM: s.AccuracyM, CreatedAt: f.now()}, nil
}
