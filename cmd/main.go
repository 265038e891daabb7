// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/api"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/config"
	"fishing-borders/internal/guard"
	"fishing-borders/internal/location"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/metrics"
	"fishing-borders/internal/middleware"
	"fishing-borders/internal/migrate"
	"fishing-borders/internal/notify"
	"fishing-borders/internal/scheduler"
	"fishing-borders/internal/store"
	"fishing-borders/internal/utils"
	"fishing-borders/internal/zones"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 海域数据加载失败属于启动期错误，直接退出
	lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	zs, err := zones.Load(lctx, cfg.ZonesSource)
	cancel()
	if err != nil {
		l.Error("zone_load_error", "source", cfg.ZonesSource, "err", err)
		os.Exit(1)
	}
	zoneStore := zones.NewStore(zs, zones.WithCellCache(4096, cfg.ZoneCacheTTL))

	provider, push, closeProvider := buildProvider(cfg)
	defer closeProvider()
	opts := location.DefaultOptions()
	opts.Timeout = cfg.LocationTimeout
	opts.MaximumAge = cfg.LocationMaxAge
	feed := location.NewFeed(provider, opts)

	evaluator := compliance.NewEvaluator()
	if loc, err := time.LoadLocation(cfg.ReportTZ); err == nil {
		evaluator.Location = loc
	} else {
		l.Warn("report_tz_invalid", "tz", cfg.ReportTZ, "err", err)
	}

	mgr := alerts.NewManager(alerts.Options{
		DedupWindow: cfg.AlertDedupWindow,
		ExpireAfter: cfg.AlertExpireAfter,
		MaxLive:     cfg.AlertMaxLive,
		Location:    feed,
	})
	defer mgr.Close()

	gopts := guard.Options{ProximityWarnM: cfg.ProximityWarnM}
	var archive api.Archive
	if cfg.CheckLogEnabled {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st := store.AttachDB(db)
		gopts.Checks = st
		archive = st
		scheduler.StartDailyReport(ctx, mgr, st, cfg.ReportTZ, cfg.ReportHour)
	} else {
		l.Info("checklog_disabled")
	}

	g := guard.New(feed, zoneStore, evaluator, mgr, gopts)
	g.Start()
	defer g.Stop()
	go g.RunCheckWriter(ctx)

	var sinks []notify.AlertSink
	if cfg.RedisEnabled {
		rc := utils.OpenRedisFromEnv()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		defer rc.Close()
		sinks = append(sinks, notify.NewRedisPublisher(rc, cfg.RedisChannel))
	} else {
		l.Info("redis_disabled")
	}
	if len(sinks) > 0 {
		q := notify.NewQueue(256, sinks...)
		mgr.OnAlert(q.OnAlert)
		go q.Run(ctx)
		defer q.Close()
	}

	deps := api.Deps{
		Feed:         feed,
		Push:         push,
		Zones:        zoneStore,
		Manager:      mgr,
		Guard:        g,
		Archive:      archive,
		HistoryLimit: cfg.HistoryLimit,
		Allowlist:    middleware.NewAllowlist(l, cfg.DeviceAllowIPs, cfg.DeviceAllowCIDRs, cfg.DeviceRealIPHeader, cfg.DeviceTrustedProxies),
	}
	if len(cfg.KafkaBrokers) > 0 {
		kd := notify.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaTopicEmergency, os.Getenv("VESSEL_ID"))
		defer kd.Close()
		deps.Dispatcher = kd
		l.Info("kafka_dispatcher_ready", "topic", cfg.KafkaTopicEmergency)
	}
	if cfg.RateLimitEnabled {
		deps.Limiter = middleware.NewTokenBucket(cfg.RateLimitQPS)
	}

	if cfg.AutoTrack {
		if err := feed.StartTracking(); err != nil {
			l.Error("location_tracking_error", "err", err)
		}
	}
	defer feed.StopTracking()

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(deps)
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           logger.AccessMiddleware(l)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLSEnabled {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, os.Getenv("TLS_HOSTS")); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath, "zones", zoneStore.Len())
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr, "zones", zoneStore.Len())
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
	}
	l.Info("shutdown")
}

// buildProvider：按 LOCATION_PROVIDER 选择定位来源；GeoIP 打开失败时回退到设备上报
func buildProvider(cfg config.Config) (location.Provider, *location.PushProvider, func()) {
	l := logger.L()
	switch cfg.LocationProvider {
	case "geoip":
		p, err := location.OpenGeoIP(cfg.GeoIPDBPath, cfg.GeoIPAddr, cfg.GeoIPPoll)
		switch {
		case errors.Is(err, location.ErrGeoIPAddr):
			l.Error("geoip_ip_invalid", "ip", cfg.GeoIPAddr, "err", err)
		case err != nil:
			l.Error("geoip_provider_error", "db", cfg.GeoIPDBPath, "err", err)
		default:
			l.Info("location_provider", "name", "geoip", "db", cfg.GeoIPDBPath)
			return p, nil, func() { _ = p.Close() }
		}
	case "static":
		l.Info("location_provider", "name", "static", "lat", cfg.StaticLat, "lng", cfg.StaticLng)
		return location.NewStaticProvider(cfg.StaticLat, cfg.StaticLng, 5*time.Second), nil, func() {}
	}
	p := location.NewPushProvider(64)
	l.Info("location_provider", "name", "push")
	return p, p, func() {}
}
