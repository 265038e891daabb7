package location

import (
	"context"
	"time"
)

// StaticProvider：固定坐标（演示与测试），按间隔重复产出
type StaticProvider struct {
	Lat, Lng  float64
	AccuracyM float64
	Interval  time.Duration
	now       func() time.Time
}

func NewStaticProvider(lat, lng float64, interval time.Duration) *StaticProvider {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StaticProvider{Lat: lat, Lng: lng, AccuracyM: 10, Interval: interval, now: time.Now}
}

func (p *StaticProvider) Name() string                              { return "static" }
func (p *StaticProvider) Available() bool                           { return true }
func (p *StaticProvider) Permission(ctx context.Context) Permission { return PermissionGranted }

func (p *StaticProvider) sample() Sample {
	return Sample{Lat: p.Lat, Lng: p.Lng, AccuracyM: p.AccuracyM, CapturedAt: p.now(), Source: p.Name()}
}

func (p *StaticProvider) Current(ctx context.Context, opts Options) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	return p.sample(), nil
}

func (p *StaticProvider) Watch(ctx context.Context, opts Options, emit func(Sample, error)) error {
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			emit(p.sample(), nil)
		}
	}
}
