package location

import (
	"context"
	"time"
)

// 授权状态
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
	PermissionUnknown Permission = "unknown"
)

// Options：单次定位参数
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultOptions：高精度、10s 超时、可接受 30s 内的缓存结果
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 30 * time.Second}
}

// 文档注释：定位提供方接口
// 背景：抽象设备 GPS 上报、GeoIP 粗定位、固定坐标等来源，Feed 只依赖该契约。
// 约束：Current 需遵守 ctx 截止时间；Watch 阻塞直到 ctx 结束，期间通过 emit 同步回调样本或错误，
// emit 的调用必须串行；Available 为 false 时视为平台不支持定位。
type Provider interface {
	Name() string
	Available() bool
	Current(ctx context.Context, opts Options) (Sample, error)
	Watch(ctx context.Context, opts Options, emit func(Sample, error)) error
	Permission(ctx context.Context) Permission
}
