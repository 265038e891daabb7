package alerts

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fishing-borders/internal/compliance"
	"fishing-borders/internal/location"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/metrics"
	"fishing-borders/internal/zones"
)

// ErrLocationUnavailable：求救广播时尚无当前船位
var ErrLocationUnavailable = location.ErrLocationUnavailable

// ErrNotFound：告警不存在或已解除
var ErrNotFound = errors.New("alert not found")

// LocationSource：当前船位来源（location.Feed 满足该接口）
type LocationSource interface {
	Current() (location.Sample, bool)
}

// Options：管理器参数
type Options struct {
	DedupWindow time.Duration
	ExpireAfter time.Duration
	MaxLive     int
	HistoryMax  int
	Clock       Clock
	Location    LocationSource
}

// DefaultOptions：去重 60s、自动过期 30s、在线告警上限 100、历史上限 10000
func DefaultOptions() Options {
	return Options{DedupWindow: time.Minute, ExpireAfter: 30 * time.Second, MaxLive: 100, HistoryMax: 10000}
}

// HistoryEntry：历史记录（仅 Resolved 可变）
type HistoryEntry struct {
	compliance.Alert
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Callback：告警准入回调，携带准入时的合规快照
type Callback func(a compliance.Alert, snap compliance.Snapshot)

// Emergency：求救数据包（只生成，不投递）
type Emergency struct {
	Location         location.Sample     `json:"location"`
	CurrentZone      *zones.Zone         `json:"current_zone"`
	ComplianceStatus compliance.Snapshot `json:"compliance_status"`
	LiveAlerts       []compliance.Alert  `json:"live_alerts"`
	EmergencyType    string              `json:"emergency_type"`
	CreatedAt        time.Time           `json:"created_at"`
}

type subscriber struct {
	id uint64
	fn Callback
}

// 文档注释：告警管理器
// 背景：将判定器输出转为去重后的在线告警集合与只追加的历史；非常驻告警按 id 独立计时自动解除。
// 约束：每批告警的去重检查与在线列表修改在同一临界区内完成；回调在临界区外按注册顺序同步执行；
// 在线列表超出上限时先淘汰最旧的非常驻告警，再淘汰最旧告警；Close 取消全部待执行的计时器。
type Manager struct {
	opts  Options
	clock Clock
	log   *slog.Logger

	mu       sync.Mutex
	snapshot compliance.Snapshot
	live     []compliance.Alert
	history  []*HistoryEntry
	byID     map[string]*HistoryEntry
	timers   map[string]Timer
	subs     []subscriber
	nextSub  uint64
	closed   bool
}

func NewManager(opts Options) *Manager {
	def := DefaultOptions()
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = def.DedupWindow
	}
	if opts.ExpireAfter <= 0 {
		opts.ExpireAfter = def.ExpireAfter
	}
	if opts.MaxLive <= 0 {
		opts.MaxLive = def.MaxLive
	}
	if opts.HistoryMax <= 0 {
		opts.HistoryMax = def.HistoryMax
	}
	clk := opts.Clock
	if clk == nil {
		clk = RealClock()
	}
	return &Manager{
		opts:     opts,
		clock:    clk,
		log:      logger.Component("alerts"),
		snapshot: compliance.EmptySnapshot(),
		byID:     map[string]*HistoryEntry{},
		timers:   map[string]Timer{},
	}
}

type notification struct {
	alert compliance.Alert
	snap  compliance.Snapshot
	subs  []subscriber
}

// Apply：保存判定快照并接收其告警（同一临界区）
func (m *Manager) Apply(res compliance.Result) []compliance.Alert {
	m.mu.Lock()
	m.snapshot = res.Snapshot
	admitted, n := m.ingestLocked(res.Alerts)
	m.mu.Unlock()
	m.notify(n)
	return admitted
}

// 文档注释：接收一批候选告警
// 背景：在线列表中已有同严重度、同类别、同海域且创建于去重窗口内的告警时，候选告警被丢弃。
// 约束：返回实际准入的告警（已分配 ID）；同一批次内先准入的告警也参与后续去重。
func (m *Manager) Ingest(alerts []compliance.Alert) []compliance.Alert {
	m.mu.Lock()
	admitted, n := m.ingestLocked(alerts)
	m.mu.Unlock()
	m.notify(n)
	return admitted
}

func (m *Manager) ingestLocked(alerts []compliance.Alert) ([]compliance.Alert, []notification) {
	if len(alerts) == 0 {
		return nil, nil
	}
	now := m.clock.Now()
	var admitted []compliance.Alert
	for _, a := range alerts {
		if m.isDuplicate(a, now) {
			metrics.AlertsDedupedTotal.WithLabelValues(string(a.Severity)).Inc()
			m.log.Debug("alert_deduped", "category", a.Category, "zone", a.ZoneRef)
			continue
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, dup := m.byID[a.ID]; dup {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		m.live = append(m.live, a)
		e := &HistoryEntry{Alert: a}
		m.history = append(m.history, e)
		m.byID[a.ID] = e
		if !a.Persistent && !m.closed {
			id := a.ID
			m.timers[id] = m.clock.AfterFunc(m.opts.ExpireAfter, func() { m.expire(id) })
		}
		admitted = append(admitted, a)
	}
	evicted := m.evictLocked(now)
	m.trimHistoryLocked()
	metrics.LiveAlerts.Set(float64(len(m.live)))
	// 本批次内即被淘汰的告警不再返回或通知
	kept := admitted[:0]
	for _, a := range admitted {
		if _, gone := evicted[a.ID]; gone {
			continue
		}
		kept = append(kept, a)
		metrics.AlertsAdmittedTotal.WithLabelValues(string(a.Severity)).Inc()
		m.log.Info("alert_admitted", "id", a.ID, "severity", a.Severity, "category", a.Category, "zone", a.ZoneRef)
	}
	admitted = kept
	if len(admitted) == 0 {
		return nil, nil
	}
	subs := append([]subscriber(nil), m.subs...)
	snap := copySnapshot(m.snapshot)
	n := make([]notification, 0, len(admitted))
	for _, a := range admitted {
		n = append(n, notification{alert: a, snap: snap, subs: subs})
	}
	return admitted, n
}

func (m *Manager) isDuplicate(a compliance.Alert, now time.Time) bool {
	for _, l := range m.live {
		if l.Severity == a.Severity && l.Category == a.Category && l.ZoneRef == a.ZoneRef &&
			now.Sub(l.CreatedAt) < m.opts.DedupWindow {
			return true
		}
	}
	return false
}

// evictLocked：超出上限时淘汰，优先非持久告警；返回被淘汰的 ID
func (m *Manager) evictLocked(now time.Time) map[string]struct{} {
	var evicted map[string]struct{}
	for len(m.live) > m.opts.MaxLive {
		idx := 0
		for i, a := range m.live {
			if !a.Persistent {
				idx = i
				break
			}
		}
		id := m.live[idx].ID
		m.removeLocked(idx, now)
		metrics.AlertsResolvedTotal.WithLabelValues("evicted").Inc()
		m.log.Warn("alert_evicted", "id", id, "max_live", m.opts.MaxLive)
		if evicted == nil {
			evicted = map[string]struct{}{}
		}
		evicted[id] = struct{}{}
	}
	return evicted
}

func (m *Manager) trimHistoryLocked() {
	if over := len(m.history) - m.opts.HistoryMax; over > 0 {
		for _, e := range m.history[:over] {
			delete(m.byID, e.ID)
		}
		m.history = append([]*HistoryEntry(nil), m.history[over:]...)
	}
}

// removeLocked：移出在线列表，标记历史已解除并取消计时器
func (m *Manager) removeLocked(idx int, now time.Time) {
	id := m.live[idx].ID
	m.live = append(m.live[:idx], m.live[idx+1:]...)
	if e, ok := m.byID[id]; ok && !e.Resolved {
		t := now
		e.Resolved = true
		e.ResolvedAt = &t
	}
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) resolve(id, cause string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.live {
		if a.ID == id {
			m.removeLocked(i, m.clock.Now())
			metrics.AlertsResolvedTotal.WithLabelValues(cause).Inc()
			metrics.LiveAlerts.Set(float64(len(m.live)))
			m.log.Info("alert_resolved", "id", id, "cause", cause)
			return true
		}
	}
	return false
}

// Resolve：解除告警；不存在时无副作用并返回 false
func (m *Manager) Resolve(id string) bool { return m.resolve(id, "manual") }

func (m *Manager) expire(id string) {
	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()
	m.resolve(id, "expired")
}

func (m *Manager) notify(ns []notification) {
	for _, n := range ns {
		for _, s := range n.subs {
			m.invoke(s, n.alert, n.snap)
		}
	}
}

func (m *Manager) invoke(s subscriber, a compliance.Alert, snap compliance.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("alert_callback_panic", "subscriber", s.id, "alert", a.ID, "panic", fmt.Sprint(r))
		}
	}()
	s.fn(a, snap)
}

// OnAlert：注册准入回调，返回取消函数（重复调用无副作用）
func (m *Manager) OnAlert(fn Callback) (unsubscribe func()) {
	m.mu.Lock()
	m.nextSub++
	sub := subscriber{id: m.nextSub, fn: fn}
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == sub.id {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// LiveAlerts：在线告警副本（准入顺序）
func (m *Manager) LiveAlerts() []compliance.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]compliance.Alert{}, m.live...)
}

// ComplianceStatus：最近一次合规快照
func (m *Manager) ComplianceStatus() compliance.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.snapshot)
}

// CurrentZone：最近一次判定的当前海域
func (m *Manager) CurrentZone() *zones.Zone {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot.CurrentZone == nil {
		return nil
	}
	z := *m.snapshot.CurrentZone
	return &z
}

// History：最近 limit 条历史（新到旧）；limit<=0 取 50
func (m *Manager) History(limit int) []HistoryEntry {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	src := m.history
	if len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]HistoryEntry, len(src))
	for i, e := range src {
		out[i] = *e
	}
	m.mu.Unlock()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// AllHistory：全部历史（旧到新），供报表使用
func (m *Manager) AllHistory() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	for i, e := range m.history {
		out[i] = *e
	}
	return out
}

// 文档注释：生成求救数据包
// 背景：汇总当前船位、当前海域、合规快照与在线告警，交由外部通道投递。
// 约束：无当前船位时返回 ErrLocationUnavailable；本方法不做任何网络投递。
func (m *Manager) EmergencyBroadcast() (Emergency, error) {
	if m.opts.Location == nil {
		metrics.EmergencyBroadcastsTotal.WithLabelValues("no_fix").Inc()
		return Emergency{}, ErrLocationUnavailable
	}
	loc, ok := m.opts.Location.Current()
	if !ok {
		metrics.EmergencyBroadcastsTotal.WithLabelValues("no_fix").Inc()
		return Emergency{}, ErrLocationUnavailable
	}
	m.mu.Lock()
	em := Emergency{
		Location:         loc,
		ComplianceStatus: copySnapshot(m.snapshot),
		LiveAlerts:       append([]compliance.Alert{}, m.live...),
		EmergencyType:    "SOS",
		CreatedAt:        m.clock.Now(),
	}
	if m.snapshot.CurrentZone != nil {
		z := *m.snapshot.CurrentZone
		em.CurrentZone = &z
	}
	m.mu.Unlock()
	metrics.EmergencyBroadcastsTotal.WithLabelValues("ok").Inc()
	m.log.Warn("emergency_broadcast", "lat", loc.Lat, "lng", loc.Lng, "live_alerts", len(em.LiveAlerts))
	return em, nil
}

// Close：取消全部待执行的自动过期计时器
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.closed = true
}

func copySnapshot(s compliance.Snapshot) compliance.Snapshot {
	s.Violations = append([]compliance.Violation{}, s.Violations...)
	s.Warnings = append([]compliance.Warning{}, s.Warnings...)
	if s.CurrentZone != nil {
		z := *s.CurrentZone
		s.CurrentZone = &z
	}
	return s
}
