package geo

// 文档注释：轻量 geohash 编码（base32）
// 背景：用于海域查询网格缓存键与消息分区键；精度由调用方决定。
// 约束：仅用于分桶，不参与命中判定。
var base32 = []rune("0123456789bcdefghjkmnpqrstuvwxyz")

func Geohash(lat, lng float64, precision int) string {
	latInt := []float64{-90, 90}
	lngInt := []float64{-180, 180}
	bits := []int{16, 8, 4, 2, 1}
	bit := 0
	ch := 0
	even := true
	out := make([]rune, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lngInt[0] + lngInt[1]) / 2
			if lng >= mid {
				ch |= bits[bit]
				lngInt[0] = mid
			} else {
				lngInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if lat >= mid {
				ch |= bits[bit]
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out = append(out, base32[ch])
			bit = 0
			ch = 0
		}
	}
	return string(out)
}

// 文档注释：geohash 单元格边界
// 背景：用于网格候选过滤：与单元格包围盒相交的海域才需要精确判定。
// 约束：非法字符返回 false。
func GeohashBounds(hash string) (BBox, bool) {
	latInt := [2]float64{-90, 90}
	lngInt := [2]float64{-180, 180}
	even := true
	for _, r := range hash {
		idx := -1
		for i, c := range base32 {
			if c == r {
				idx = i
				break
			}
		}
		if idx < 0 {
			return BBox{}, false
		}
		for mask := 16; mask > 0; mask >>= 1 {
			if even {
				mid := (lngInt[0] + lngInt[1]) / 2
				if idx&mask != 0 {
					lngInt[0] = mid
				} else {
					lngInt[1] = mid
				}
			} else {
				mid := (latInt[0] + latInt[1]) / 2
				if idx&mask != 0 {
					latInt[0] = mid
				} else {
					latInt[1] = mid
				}
			}
			even = !even
		}
	}
	return BBox{lngInt[0], latInt[0], lngInt[1], latInt[1]}, true
}

// Intersects：两个包围盒是否相交（含边界接触）
func (b BBox) Intersects(o BBox) bool {
	return b[0] <= o[2] && o[0] <= b[2] && b[1] <= o[3] && o[1] <= b[3]
}
