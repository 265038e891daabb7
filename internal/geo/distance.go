package geo

import "math"

// 地球平均半径（米）
const EarthRadiusM = 6371e3

// 文档注释：球面距离（Haversine），返回米
// 背景：用于近岸/近界检测与船位间距计算；精度满足米级告警需求。
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// Distance：两点间距离（米）
func Distance(a, b Point) float64 { return Haversine(a.Lat, a.Lng, b.Lat, b.Lng) }

// Proximity：最近边界点与距离
type Proximity struct {
	DistanceM    float64 `json:"distance_m"`
	ClosestPoint Point   `json:"closest_point"`
}

// 文档注释：边界接近检测
// 背景：在船只尚未越界时提前预警；在候选边界点中找最近的一个，距离不超过 warnM 时视为正在接近。
// 约束：仅比较顶点距离，不做点到线段投影；边界点稀疏时结果偏保守（距离偏大）。
func CheckProximity(pt Point, border []Point, warnM float64) (Proximity, bool) {
	if len(border) == 0 {
		return Proximity{}, false
	}
	best := Proximity{DistanceM: math.MaxFloat64}
	for _, p := range border {
		d := Distance(pt, p)
		if d < best.DistanceM {
			best = Proximity{DistanceM: d, ClosestPoint: p}
		}
	}
	if best.DistanceM <= warnM {
		return best, true
	}
	return Proximity{}, false
}
