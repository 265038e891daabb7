package location

import (
	"fmt"
	"math"
	"time"

	"fishing-borders/internal/geo"
)

// 文档注释：船位样本
// 背景：每次定位成功回调生成一份；仅保留“当前”一份，其余由告警历史按值嵌入。
// 约束：Speed/Heading 可能缺失（设备未提供）；CapturedAt 为定位时间而非接收时间。
type Sample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AccuracyM  float64   `json:"accuracy_m"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source,omitempty"`
}

func (s Sample) Point() geo.Point { return geo.Point{Lat: s.Lat, Lng: s.Lng} }

// Validate：坐标范围与精度合法性
func (s Sample) Validate() error {
	if math.IsNaN(s.Lat) || math.IsNaN(s.Lng) || s.Lat < -90 || s.Lat > 90 || s.Lng < -180 || s.Lng > 180 {
		return fmt.Errorf("%w: coordinate out of range (%v, %v)", ErrInvalidSample, s.Lat, s.Lng)
	}
	if s.AccuracyM < 0 || math.IsNaN(s.AccuracyM) {
		return fmt.Errorf("%w: negative accuracy", ErrInvalidSample)
	}
	if s.HeadingDeg != nil && (*s.HeadingDeg < 0 || *s.HeadingDeg >= 360) {
		return fmt.Errorf("%w: heading must be in [0, 360)", ErrInvalidSample)
	}
	if s.SpeedMps != nil && *s.SpeedMps < 0 {
		return fmt.Errorf("%w: negative speed", ErrInvalidSample)
	}
	return nil
}

// Distance：两点大圆距离（米）
func Distance(lat1, lng1, lat2, lng2 float64) float64 { return geo.Haversine(lat1, lng1, lat2, lng2) }
