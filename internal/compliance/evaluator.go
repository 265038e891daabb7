package compliance

import (
	"sort"
	"strings"
	"time"

	"fishing-borders/internal/geo"
	"fishing-borders/internal/location"
	"fishing-borders/internal/metrics"
	"fishing-borders/internal/zones"
)

// BoatProfile：船舶登记信息
type BoatProfile struct {
	Registration string  `json:"registration"`
	LengthM      float64 `json:"length_m"`
}

// BoatSizeCheck：返回 true 表示船型超出海域限制
type BoatSizeCheck func(z zones.Zone, boat *BoatProfile) bool

// NoBoatSizeViolation：暂无船舶登记数据，恒为 false
func NoBoatSizeViolation(zones.Zone, *BoatProfile) bool { return false }

// 文档注释：合规判定器
// 背景：对命中的每个海域独立判定（重叠海域各自产出告警），生成快照、候选告警与检查记录。
// 约束：除读取时钟外无副作用；告警 ID 留空，由告警管理器准入时分配。
type Evaluator struct {
	Now           func() time.Time
	Location      *time.Location
	BoatSizeCheck BoatSizeCheck
	Boat          *BoatProfile
}

func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now, Location: time.Local, BoatSizeCheck: NoBoatSizeViolation}
}

// Evaluate：判定船位与全部海域
func (e *Evaluator) Evaluate(loc location.Sample, zs []zones.Zone) Result {
	pt := loc.Point()
	var matched []zones.Zone
	for _, z := range zs {
		if z.Contains(pt) {
			matched = append(matched, z)
		}
	}
	return e.evaluate(loc, matched)
}

// EvaluateStore：经由海域快照的网格缓存查询命中海域后判定
func (e *Evaluator) EvaluateStore(loc location.Sample, s *zones.Store) Result {
	return e.evaluate(loc, s.Lookup(loc.Point()))
}

func (e *Evaluator) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Evaluator) evaluate(loc location.Sample, matched []zones.Zone) Result {
	start := time.Now()
	now := e.now()
	month := now.Month()
	if e.Location != nil {
		month = now.In(e.Location).Month()
	}
	boatCheck := e.BoatSizeCheck
	if boatCheck == nil {
		boatCheck = NoBoatSizeViolation
	}

	snap := Snapshot{Violations: []Violation{}, Warnings: []Warning{}, EvaluatedAt: now}
	var alerts []Alert
	for _, z := range matched {
		if !z.AllowedFishing {
			a := ViolationAlert(z, now)
			snap.Violations = append(snap.Violations, Violation{
				Type:      CategoryProhibited,
				Zone:      z.Name,
				Severity:  "HIGH",
				Message:   "You are in a restricted zone: " + z.Name,
				Penalty:   z.Penalty,
				Action:    a.Action,
				Timestamp: now,
				Location:  loc,
			})
			alerts = append(alerts, a)
		} else if z.RestrictionLevel == zones.RestrictionHigh {
			snap.Warnings = append(snap.Warnings, Warning{
				Type: CategoryHighRestriction, Zone: z.Name, Timestamp: now,
				Message: "High restriction zone - special permits required",
			})
			alerts = append(alerts, HighRestrictionAlert(z, now))
		}
		if z.HasSeasonalRule() && SeasonActive(z.SeasonalRestrictions, month) {
			a := SeasonalAlert(z, now)
			snap.Warnings = append(snap.Warnings, Warning{Type: CategorySeasonal, Zone: z.Name, Message: a.Message, Timestamp: now})
			alerts = append(alerts, a)
		}
		if boatCheck(z, e.Boat) {
			a := BoatSizeAlert(z, now)
			snap.Warnings = append(snap.Warnings, Warning{Type: CategoryBoatSize, Zone: z.Name, Message: a.Message, Timestamp: now})
			alerts = append(alerts, a)
		}
	}
	snap.IsCompliant = len(snap.Violations) == 0
	snap.CurrentZone = CurrentZone(matched)

	entry := CheckLog{
		Time: now, Lat: loc.Lat, Lng: loc.Lng, AccuracyM: loc.AccuracyM, Zone: OpenWaters,
		ViolationCount: len(snap.Violations), WarningCount: len(snap.Warnings), Compliant: snap.IsCompliant,
	}
	if snap.CurrentZone != nil {
		entry.Zone = snap.CurrentZone.Name
	}

	metrics.EvaluationsTotal.Inc()
	metrics.EvaluationDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if !snap.IsCompliant {
		metrics.NonCompliantTotal.Inc()
	}
	return Result{Snapshot: snap, Alerts: alerts, CheckLog: entry}
}

// 文档注释：当前海域选择
// 背景：重叠海域同时命中时需要唯一且确定的“当前海域”，不依赖加载顺序。
// 约束：禁捕区优先；其次限制等级高者；再次多边形面积小者；最后按名称字典序。
func CurrentZone(matched []zones.Zone) *zones.Zone {
	if len(matched) == 0 {
		return nil
	}
	cands := append([]zones.Zone(nil), matched...)
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.AllowedFishing != b.AllowedFishing {
			return !a.AllowedFishing
		}
		if ra, rb := a.RestrictionLevel.Rank(), b.RestrictionLevel.Rank(); ra != rb {
			return ra > rb
		}
		if aa, ab := geo.RingArea(a.Polygon), geo.RingArea(b.Polygon); aa != ab {
			return aa < ab
		}
		return strings.Compare(a.Name, b.Name) < 0
	})
	z := cands[0]
	return &z
}
