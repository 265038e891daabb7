package zones

import (
	"time"

	"fishing-borders/internal/geo"
	"fishing-borders/internal/metrics"
)

// 网格精度：6 字符约 1.2km × 0.6km
const cellPrecision = 6

// 文档注释：海域只读快照
// 背景：加载完成后对合规判定提供只读视图；查询时按 geohash 网格缓存候选海域，再做精确 PIP。
// 约束：无任何修改接口；重新加载需重新初始化。并发读安全。
type Store struct {
	zones []Zone
	cells *lru
}

// StoreOption：快照参数
type StoreOption func(*Store)

// WithCellCache：调整网格候选缓存容量与 TTL
func WithCellCache(capacity int, ttl time.Duration) StoreOption {
	return func(s *Store) {
		if capacity > 0 && ttl > 0 {
			s.cells = newLRU(capacity, ttl)
		}
	}
}

func NewStore(zs []Zone, opts ...StoreOption) *Store {
	s := &Store{zones: append([]Zone(nil), zs...), cells: newLRU(4096, time.Hour)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Zones：返回海域列表副本（加载顺序）
func (s *Store) Zones() []Zone {
	if s == nil {
		return nil
	}
	return append([]Zone(nil), s.zones...)
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.zones)
}

// ByName：按名称查找海域
func (s *Store) ByName(name string) (Zone, bool) {
	if s == nil {
		return Zone{}, false
	}
	for _, z := range s.zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

// 文档注释：查询包含该点的全部海域
// 背景：重叠海域需全部返回，顺序与加载顺序一致，由判定层决定优先级。
// 约束：网格缓存只保存候选集合，命中结果每次都经过精确判定，避免网格跨越边界时误判。
func (s *Store) Lookup(pt geo.Point) []Zone {
	if s == nil || len(s.zones) == 0 {
		return nil
	}
	var out []Zone
	for _, i := range s.candidates(pt) {
		if s.zones[i].Contains(pt) {
			out = append(out, s.zones[i])
		}
	}
	return out
}

func (s *Store) candidates(pt geo.Point) []int {
	key := geo.Geohash(pt.Lat, pt.Lng, cellPrecision)
	if v, ok := s.cells.get(key); ok {
		metrics.ZoneCacheHitsTotal.Inc()
		return v
	}
	metrics.ZoneCacheMissesTotal.Inc()
	cell, ok := geo.GeohashBounds(key)
	idx := make([]int, 0, 4)
	for i := range s.zones {
		if !ok || s.zones[i].BBox.Intersects(cell) {
			idx = append(idx, i)
		}
	}
	s.cells.set(key, idx)
	return idx
}
