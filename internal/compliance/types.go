package compliance

import (
	"time"

	"fishing-borders/internal/location"
	"fishing-borders/internal/zones"
)

// 告警严重度
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// 告警类别（与严重度、海域名共同构成去重键）
type Category string

const (
	CategoryProhibited      Category = "PROHIBITED"
	CategoryHighRestriction Category = "HIGH_RESTRICTION"
	CategorySeasonal        Category = "SEASONAL"
	CategoryBoatSize        Category = "BOAT_SIZE"
	CategoryProximity       Category = "PROXIMITY"
)

// 文档注释：告警
// 背景：由判定器生成、告警管理器接收；ID 在准入时分配（uuid），同一告警实例唯一。
// 约束：Persistent=true（越界禁捕告警）不自动过期；其余默认 30s 后自动解除。
type Alert struct {
	ID         string    `json:"id"`
	Severity   Severity  `json:"severity"`
	Category   Category  `json:"category"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Action     string    `json:"action,omitempty"`
	Penalty    string    `json:"penalty,omitempty"`
	Contact    string    `json:"contact,omitempty"`
	Details    string    `json:"details,omitempty"`
	ZoneRef    string    `json:"zone_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Persistent bool      `json:"persistent"`
}

// Violation：硬性规则违反（禁捕区内）
type Violation struct {
	Type      Category        `json:"type"`
	Zone      string          `json:"zone"`
	Severity  string          `json:"severity"`
	Message   string          `json:"message"`
	Penalty   string          `json:"penalty,omitempty"`
	Action    string          `json:"action"`
	Timestamp time.Time       `json:"timestamp"`
	Location  location.Sample `json:"location"`
}

// Warning：软性合规提示（许可、季节、船型）
type Warning struct {
	Type      Category  `json:"type"`
	Zone      string    `json:"zone"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// 文档注释：合规快照
// 背景：每个船位样本全量重算，不做增量修补。
// 约束：IsCompliant 当且仅当 Violations 为空；CurrentZone 为空表示不在任何海域内。
type Snapshot struct {
	IsCompliant bool        `json:"is_compliant"`
	Violations  []Violation `json:"violations"`
	Warnings    []Warning   `json:"warnings"`
	CurrentZone *zones.Zone `json:"current_zone"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// EmptySnapshot：尚未判定时的初始状态
func EmptySnapshot() Snapshot {
	return Snapshot{IsCompliant: true, Violations: []Violation{}, Warnings: []Warning{}}
}

// 开放水域（未命中任何海域）的日志名
const OpenWaters = "Open Waters"

// CheckLog：单次合规检查记录
type CheckLog struct {
	Time           time.Time `json:"time"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	AccuracyM      float64   `json:"accuracy_m"`
	Zone           string    `json:"zone"`
	ViolationCount int       `json:"violation_count"`
	WarningCount   int       `json:"warning_count"`
	Compliant      bool      `json:"compliant"`
}

// Result：一次判定的输出
type Result struct {
	Snapshot Snapshot `json:"snapshot"`
	Alerts   []Alert  `json:"alerts"`
	CheckLog CheckLog `json:"check_log"`
}
