package migrate

import (
	"database/sql"

	"fishing-borders/internal/logger"
)

// 背景：首次运行自动创建合规检查记录表与日报归档表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _fg_compliance_checks (
            id BIGSERIAL PRIMARY KEY,
            checked_at TIMESTAMPTZ NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            lng DOUBLE PRECISION NOT NULL,
            accuracy_m DOUBLE PRECISION NOT NULL DEFAULT 0,
            zone TEXT NOT NULL,
            violation_count INT NOT NULL DEFAULT 0,
            warning_count INT NOT NULL DEFAULT 0,
            compliant BOOLEAN NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_fg_checks_time ON _fg_compliance_checks(checked_at)`,
		`CREATE TABLE IF NOT EXISTS _fg_reports (
            day DATE PRIMARY KEY,
            score INT NOT NULL,
            violations INT NOT NULL,
            warnings INT NOT NULL,
            body JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
