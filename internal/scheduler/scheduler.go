// 包 scheduler：在服务进程内的后台协程中按日归档合规报告
package scheduler

import (
	"context"
	"time"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/report"
	"fishing-borders/internal/zones"
)

// ReportSource：报告数据来源（alerts.Manager 满足该接口）
type ReportSource interface {
	AllHistory() []alerts.HistoryEntry
	ComplianceStatus() compliance.Snapshot
	CurrentZone() *zones.Zone
}

// ReportSaver：报告归档（store.Store 满足该接口）
type ReportSaver interface {
	SaveReport(ctx context.Context, day time.Time, r report.Report) error
}

// nextDailyAt：下一次指定整点的时间（当天已过则顺延一天）
// 约束：基于传入时区 loc 与整点 hour
func nextDailyAt(now time.Time, loc *time.Location, hour int) time.Time {
	now = now.In(loc)
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// RunReportOnce：生成截至 now 的 24h 报告并归档，归档日期取窗口起点所在日
func RunReportOnce(ctx context.Context, src ReportSource, dst ReportSaver, loc *time.Location, now time.Time) (report.Report, error) {
	r := report.Generate(src.AllHistory(), src.ComplianceStatus(), src.CurrentZone(), now, report.DefaultWindow)
	day := now.Add(-report.DefaultWindow).In(loc)
	if err := dst.SaveReport(ctx, day, r); err != nil {
		return r, err
	}
	return r, nil
}

// 文档注释：每日报告归档
// 背景：每天在指定时区的整点归档过去 24h 的合规报告，供事后审计；错误由日志记录，任务继续调度。
// 约束：tz 无法解析时回退 UTC；hour 超出 0..23 时取 0；ctx 结束后退出。
func StartDailyReport(ctx context.Context, src ReportSource, dst ReportSaver, tz string, hour int) {
	l := logger.Component("scheduler")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		l.Warn("report_tz_invalid", "tz", tz, "err", err)
		loc = time.UTC
	}
	if hour < 0 || hour > 23 {
		hour = 0
	}
	next := nextDailyAt(time.Now(), loc, hour)
	l.Info("report_job_scheduled", "next", next)
	go func() {
		for {
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			l.Info("report_archive_start", "at", next)
			if r, err := RunReportOnce(ctx, src, dst, loc, time.Now()); err != nil {
				l.Error("report_archive_error", "err", err)
			} else {
				l.Info("report_archive_done", "score", r.Summary.ComplianceScore, "alerts", r.Summary.TotalAlerts)
			}
			next = nextDailyAt(next, loc, hour)
		}
	}()
}
