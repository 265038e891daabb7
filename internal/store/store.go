// 包 store：PostgreSQL 数据访问层，保存合规检查记录与每日合规报告归档
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"fishing-borders/internal/compliance"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/report"
)

// ErrNotFound：归档不存在
var ErrNotFound = errors.New("store: not found")

// Store：数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open：使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

// Close：关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// InsertCheck：写入一条合规检查记录
func (s *Store) InsertCheck(ctx context.Context, c compliance.CheckLog) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO _fg_compliance_checks(checked_at, lat, lng, accuracy_m, zone, violation_count, warning_count, compliant)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.Time.UTC(), c.Lat, c.Lng, c.AccuracyM, c.Zone, c.ViolationCount, c.WarningCount, c.Compliant,
	)
	if err != nil {
		return fmt.Errorf("insert compliance check: %w", err)
	}
	return nil
}

// RecentChecks：最近的检查记录（新到旧）
func (s *Store) RecentChecks(ctx context.Context, limit int) ([]compliance.CheckLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT checked_at, lat, lng, accuracy_m, zone, violation_count, warning_count, compliant
        FROM _fg_compliance_checks
        ORDER BY checked_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []compliance.CheckLog
	for rows.Next() {
		var c compliance.CheckLog
		if err := rows.Scan(&c.Time, &c.Lat, &c.Lng, &c.AccuracyM, &c.Zone, &c.ViolationCount, &c.WarningCount, &c.Compliant); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// 文档注释：按保留窗口清理检查记录
// 背景：检查记录随每个船位样本写入，增长快；由 CLI 定期清理。
// 返回：删除的行数。
func (s *Store) PruneChecks(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM _fg_compliance_checks WHERE checked_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	logger.L().Debug("checks_pruned", "before", before, "rows", n)
	return n, nil
}

// SaveReport：按日期归档报告；同一天重复归档时覆盖
func (s *Store) SaveReport(ctx context.Context, day time.Time, r report.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO _fg_reports(day, score, violations, warnings, body)
        VALUES($1,$2,$3,$4,$5)
        ON CONFLICT (day) DO UPDATE SET score=EXCLUDED.score, violations=EXCLUDED.violations, warnings=EXCLUDED.warnings, body=EXCLUDED.body, created_at=now()`,
		day.Format("2006-01-02"), r.Summary.ComplianceScore, r.Summary.Violations, r.Summary.Warnings, body,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", day.Format("2006-01-02"), err)
	}
	return nil
}

// LoadReport：读取某日归档；不存在返回 ErrNotFound
func (s *Store) LoadReport(ctx context.Context, day time.Time) (*report.Report, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM _fg_reports WHERE day=$1`, day.Format("2006-01-02")).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r report.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", day.Format("2006-01-02"), err)
	}
	return &r, nil
}
