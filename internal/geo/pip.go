package geo

import "math"

// 文档注释：点入多边形判定（Even-Odd 射线法）
// 背景：判断船位是否落在单环海域多边形内；环按首尾循环处理，首尾点是否重复均可。
// 约束：少于 3 个点的环不会产生任何穿越，直接返回 false；水平边不满足跨越条件被自然跳过；
// 恰好落在边界上的点结果不确定，保留算法本身的行为，不做额外修正。
func PointInRing(pt Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x := pt.Lng
	y := pt.Lat
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// 文档注释：环面积（平面鞋带公式，单位为度²）
// 背景：仅用于多个海域重叠时的优先级比较（面积小者更具体），不用于任何面积统计。
func RingArea(ring []Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	s := 0.0
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		s += ring[j].Lng*ring[i].Lat - ring[i].Lng*ring[j].Lat
	}
	return math.Abs(s) / 2
}
