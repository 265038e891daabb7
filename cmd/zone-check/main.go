package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fishing-borders/internal/compliance"
	"fishing-borders/internal/config"
	"fishing-borders/internal/location"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/zones"
)

// 文档注释：单点合规检查
// 背景：运维与数据维护时，针对海域文件快速核对某坐标的判定结果，不启动服务。
// 约束：输出判定结果 JSON（快照 + 候选告警 + 检查记录）；海域加载失败返回非零退出码。
func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	src := flag.String("zones", cfg.ZonesSource, "zone GeoJSON path or URL")
	lat := flag.Float64("lat", 0, "latitude")
	lng := flag.Float64("lng", 0, "longitude")
	at := flag.String("at", "", "evaluation time (RFC3339), default now")
	flag.Parse()
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	s := location.Sample{Lat: *lat, Lng: *lng, CapturedAt: time.Now(), Source: "cli"}
	if err := s.Validate(); err != nil {
		l.Error("zone_check_bad_input", "err", err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	zs, err := zones.Load(ctx, *src)
	if err != nil {
		l.Error("zone_load_error", "source", *src, "err", err)
		os.Exit(1)
	}
	e := compliance.NewEvaluator()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			l.Error("zone_check_bad_time", "err", err)
			os.Exit(2)
		}
		e.Now = func() time.Time { return t }
	}
	res := e.Evaluate(s, zs)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
