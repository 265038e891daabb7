package zones

import (
	"strings"

	"fishing-borders/internal/geo"
)

// 限制等级
type RestrictionLevel string

const (
	RestrictionLow    RestrictionLevel = "low"
	RestrictionMedium RestrictionLevel = "medium"
	RestrictionHigh   RestrictionLevel = "high"
)

// Rank：等级越高数值越大；未知等级视为 0
func (r RestrictionLevel) Rank() int {
	switch r {
	case RestrictionLow:
		return 1
	case RestrictionMedium:
		return 2
	case RestrictionHigh:
		return 3
	}
	return 0
}

func parseRestriction(s string) RestrictionLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RestrictionHigh
	case "medium":
		return RestrictionMedium
	case "low":
		return RestrictionLow
	}
	return RestrictionLevel(strings.ToLower(strings.TrimSpace(s)))
}

// 季节限制的“无”哨兵值
const NoSeasonalRestriction = "None"

// 文档注释：海域要素（启动时加载，进程内只读）
// 背景：承载单个海域的多边形与捕捞许可元数据；多个海域可重叠，判定时需考虑全部命中。
// 约束：Polygon 为单环 [lng,lat] 序列；Penalty 仅在 AllowedFishing=false 时有意义。
type Zone struct {
	Name                 string           `json:"name"`
	ZoneType             string           `json:"zone_type"`
	AllowedFishing       bool             `json:"allowed_fishing"`
	RestrictionLevel     RestrictionLevel `json:"restriction_level"`
	SeasonalRestrictions string           `json:"seasonal_restrictions"`
	MaxBoatSize          string           `json:"max_boat_size"`
	Penalty              string           `json:"penalty,omitempty"`
	ContactAuthority     string           `json:"contact_authority"`
	Polygon              []geo.Point      `json:"polygon"`
	BBox                 geo.BBox         `json:"bbox"`
}

// Contains：点是否落在海域多边形内（先包围盒过滤）
func (z Zone) Contains(pt geo.Point) bool {
	if !geo.InBBox(pt, z.BBox) {
		return false
	}
	return geo.PointInRing(pt, z.Polygon)
}

// HasSeasonalRule：存在季节限制描述且不是 "None"
func (z Zone) HasSeasonalRule() bool {
	s := strings.TrimSpace(z.SeasonalRestrictions)
	return s != "" && !strings.EqualFold(s, NoSeasonalRestriction)
}
