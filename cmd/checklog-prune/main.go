package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fishing-borders/internal/config"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/store"
	"fishing-borders/internal/utils"
)

// 文档注释：合规检查记录保留窗口清理
// 背景：检查记录随每个船位样本写入；保留最近 N 天（CHECKLOG_RETENTION_DAYS 或 -days），其余删除。
// 约束：仅作用于 _fg_compliance_checks；日报归档不受影响。
func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	days := flag.Int("days", cfg.CheckLogRetentionDays, "retention window in days")
	dry := flag.Bool("dry-run", false, "report the cutoff without deleting")
	flag.Parse()
	if *days <= 0 {
		l.Error("checklog_retention_invalid", "days", *days)
		os.Exit(1)
	}
	cutoff := time.Now().AddDate(0, 0, -*days)
	if *dry {
		l.Info("checklog_prune_dry_run", "cutoff", cutoff)
		return
	}
	st, err := store.Open(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := st.PruneChecks(ctx, cutoff)
	if err != nil {
		l.Error("checklog_prune_error", "err", err)
		os.Exit(1)
	}
	l.Info("checklog_prune_done", "cutoff", cutoff, "rows", n)
}
