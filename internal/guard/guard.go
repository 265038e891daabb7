// 包 guard：串联船位数据流、合规判定与告警管理，是引擎的组装层
package guard

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/geo"
	"fishing-borders/internal/location"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/metrics"
	"fishing-borders/internal/zones"
)

// CheckSink：检查记录持久化（store.Store 满足该接口）
type CheckSink interface {
	InsertCheck(ctx context.Context, c compliance.CheckLog) error
}

// Options：组装参数
type Options struct {
	ProximityWarnM float64
	Checks         CheckSink
	CheckQueue     int
}

// ZoneProximity：船位与某海域边界的距离
type ZoneProximity struct {
	Zone           string    `json:"zone"`
	AllowedFishing bool      `json:"allowed_fishing"`
	Inside         bool      `json:"inside"`
	DistanceM      float64   `json:"distance_m"`
	ClosestPoint   geo.Point `json:"closest_point"`
}

// 文档注释：合规守护
// 背景：订阅船位数据流，对每个样本执行全量判定、补充接近禁捕区的提示，再交由告警管理器准入；检查记录写日志并可选落库。
// 约束：判定与准入在船位分发回调内同步完成，样本间不会交错；落库经有界队列异步执行，队列满时丢弃。
type Guard struct {
	feed  *location.Feed
	zones *zones.Store
	eval  *compliance.Evaluator
	mgr   *alerts.Manager
	opts  Options
	log   *slog.Logger

	checks chan compliance.CheckLog

	mu      sync.Mutex
	lastErr error
	lastLog *compliance.CheckLog

	lifeMu sync.Mutex
	unsub  func()
}

func New(feed *location.Feed, zs *zones.Store, eval *compliance.Evaluator, mgr *alerts.Manager, opts Options) *Guard {
	if opts.ProximityWarnM <= 0 {
		opts.ProximityWarnM = 1000
	}
	if opts.CheckQueue <= 0 {
		opts.CheckQueue = 256
	}
	g := &Guard{feed: feed, zones: zs, eval: eval, mgr: mgr, opts: opts, log: logger.Component("guard")}
	if opts.Checks != nil {
		g.checks = make(chan compliance.CheckLog, opts.CheckQueue)
	}
	return g
}

// Start：注册船位订阅（重复调用无副作用）
// 约束：订阅时若已有当前样本会同步回放，因此不能持有 mu
func (g *Guard) Start() {
	g.lifeMu.Lock()
	defer g.lifeMu.Unlock()
	if g.unsub != nil {
		return
	}
	g.unsub = g.feed.OnLocationUpdate(g.handle)
}

// Stop：取消船位订阅
func (g *Guard) Stop() {
	g.lifeMu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.lifeMu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// RunCheckWriter：消费检查记录队列直到 ctx 结束
func (g *Guard) RunCheckWriter(ctx context.Context) {
	if g.checks == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-g.checks:
			wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := g.opts.Checks.InsertCheck(wctx, c); err != nil {
				metrics.SinkErrorsTotal.WithLabelValues("checklog").Inc()
				g.log.Error("checklog_insert_error", "err", err)
			}
			cancel()
		}
	}
}

func (g *Guard) handle(s *location.Sample, err error) {
	if err != nil {
		g.mu.Lock()
		g.lastErr = err
		g.mu.Unlock()
		return
	}
	g.Process(*s)
}

// Process：对单个样本执行判定并准入告警
func (g *Guard) Process(s location.Sample) compliance.Result {
	res := g.eval.EvaluateStore(s, g.zones)
	for _, p := range g.Proximity(s.Point()) {
		if p.Inside || p.AllowedFishing {
			continue
		}
		if z, ok := g.zones.ByName(p.Zone); ok {
			res.Alerts = append(res.Alerts, compliance.ProximityAlert(z, geo.Proximity{DistanceM: p.DistanceM, ClosestPoint: p.ClosestPoint}, res.Snapshot.EvaluatedAt))
		}
	}
	g.mgr.Apply(res)

	c := res.CheckLog
	g.mu.Lock()
	g.lastErr = nil
	g.lastLog = &c
	g.mu.Unlock()
	g.log.Info("compliance_check",
		"lat", c.Lat, "lng", c.Lng, "accuracy_m", c.AccuracyM, "zone", c.Zone,
		"violations", c.ViolationCount, "warnings", c.WarningCount, "compliant", c.Compliant,
	)
	if g.checks != nil {
		select {
		case g.checks <- c:
		default:
			metrics.SinkErrorsTotal.WithLabelValues("checklog_queue_full").Inc()
		}
	}
	return res
}

// 文档注释：海域边界接近查询
// 背景：对每个海域取最近的边界顶点，返回距离不超过预警距离的海域（含船位所在海域）。
// 约束：先以按预警距离外扩的包围盒粗筛；结果按距离升序。
func (g *Guard) Proximity(pt geo.Point) []ZoneProximity {
	warn := g.opts.ProximityWarnM
	dLat := warn / 111_320
	cos := math.Cos(pt.Lat * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-6 {
		dLng = dLat / cos
	}
	var out []ZoneProximity
	for _, z := range g.zones.Zones() {
		b := z.BBox
		if pt.Lng < b[0]-dLng || pt.Lng > b[2]+dLng || pt.Lat < b[1]-dLat || pt.Lat > b[3]+dLat {
			continue
		}
		p, ok := geo.CheckProximity(pt, z.Polygon, warn)
		if !ok {
			continue
		}
		out = append(out, ZoneProximity{
			Zone: z.Name, AllowedFishing: z.AllowedFishing, Inside: z.Contains(pt),
			DistanceM: p.DistanceM, ClosestPoint: p.ClosestPoint,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	return out
}

// LastError：最近一次定位错误（成功样本后清空）
func (g *Guard) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// LastCheck：最近一次检查记录
func (g *Guard) LastCheck() (compliance.CheckLog, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastLog == nil {
		return compliance.CheckLog{}, false
	}
	return *g.lastLog, true
}
