package report

import (
	"fmt"
	"time"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/zones"
)

// 默认统计窗口
const DefaultWindow = 24 * time.Hour

// Summary：窗口内统计
type Summary struct {
	TotalAlerts     int `json:"total_alerts"`
	Violations      int `json:"violations"`
	Warnings        int `json:"warnings"`
	ComplianceScore int `json:"compliance_score"`
}

// Report：合规报告（供外部导出/渲染）
type Report struct {
	GeneratedAt   time.Time             `json:"generated_at"`
	Period        string                `json:"period"`
	WindowStart   time.Time             `json:"window_start"`
	Summary       Summary               `json:"summary"`
	CurrentStatus compliance.Snapshot   `json:"current_status"`
	CurrentZone   *zones.Zone           `json:"current_zone"`
	Alerts        []alerts.HistoryEntry `json:"alerts"`
}

// Score：max(0, 100-20*violations)
func Score(violations int) int {
	s := 100 - 20*violations
	if s < 0 {
		return 0
	}
	return s
}

// 文档注释：生成合规报告
// 背景：筛选 (now-window, now] 内创建的历史告警，按严重度区分违规（danger）与提示（warning）。
// 约束：window<=0 取 24h；info 级告警计入总数但不计入违规/提示。
func Generate(history []alerts.HistoryEntry, snap compliance.Snapshot, zone *zones.Zone, now time.Time, window time.Duration) Report {
	if window <= 0 {
		window = DefaultWindow
	}
	start := now.Add(-window)
	r := Report{
		GeneratedAt:   now,
		Period:        periodLabel(window),
		WindowStart:   start,
		CurrentStatus: snap,
		CurrentZone:   zone,
		Alerts:        []alerts.HistoryEntry{},
	}
	for _, e := range history {
		if !e.CreatedAt.After(start) || e.CreatedAt.After(now) {
			continue
		}
		r.Alerts = append(r.Alerts, e)
		switch e.Severity {
		case compliance.SeverityDanger:
			r.Summary.Violations++
		case compliance.SeverityWarning:
			r.Summary.Warnings++
		}
	}
	r.Summary.TotalAlerts = len(r.Alerts)
	r.Summary.ComplianceScore = Score(r.Summary.Violations)
	return r
}

func periodLabel(w time.Duration) string {
	if w%time.Hour == 0 {
		h := int(w / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return w.String()
}
