package compliance

import (
	"strings"
	"time"
)

type seasonWindow struct {
	key      string
	from, to time.Month
}

// 季节禁渔窗口（按描述文本中的区间名匹配）
var seasonWindows = []seasonWindow{
	{key: "june-july", from: time.June, to: time.July},
	{key: "october-december", from: time.October, to: time.December},
	{key: "april-may", from: time.April, to: time.May},
}

// SeasonActive：描述文本（不区分大小写）包含区间名且月份落在区间内
func SeasonActive(rule string, month time.Month) bool {
	r := strings.ToLower(rule)
	for _, w := range seasonWindows {
		if strings.Contains(r, w.key) && month >= w.from && month <= w.to {
			return true
		}
	}
	return false
}
