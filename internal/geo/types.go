package geo

// 文档注释：几何基础类型（WGS84 经纬度）
// 背景：海域边界、船位与近岸检测统一使用该坐标结构；GeoJSON 中坐标顺序为 [lng, lat]，解析层负责换位。
// 约束：不做坐标系转换；调用方保证输入已是 WGS84。
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox：minLng, minLat, maxLng, maxLat
type BBox [4]float64

// 计算环的包围盒；空环返回反向盒（任何点都不命中）
func RingBBox(ring []Point) BBox {
	b := BBox{180, 90, -180, -90}
	for _, p := range ring {
		if p.Lng < b[0] {
			b[0] = p.Lng
		}
		if p.Lat < b[1] {
			b[1] = p.Lat
		}
		if p.Lng > b[2] {
			b[2] = p.Lng
		}
		if p.Lat > b[3] {
			b[3] = p.Lat
		}
	}
	return b
}

// 快速包围盒过滤
func InBBox(pt Point, b BBox) bool {
	return pt.Lng >= b[0] && pt.Lng <= b[2] && pt.Lat >= b[1] && pt.Lat <= b[3]
}
