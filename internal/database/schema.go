package database

import (
	"context"
	"fmt"

	"github.com/paiban/roster/pkg/logger"
)

// schema 排班存储表结构
var schema = []string{
	`CREATE TABLE IF NOT EXISTS shift_types (
		unit             TEXT    NOT NULL,
		code             TEXT    NOT NULL,
		name             TEXT    NOT NULL DEFAULT '',
		start_time       TEXT    NOT NULL,
		end_time         TEXT    NOT NULL,
		duration_minutes INT     NOT NULL DEFAULT 0,
		is_night         BOOLEAN NOT NULL DEFAULT FALSE,
		is_evening       BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order       INT     NOT NULL DEFAULT 0,
		PRIMARY KEY (unit, code)
	)`,
	`CREATE TABLE IF NOT EXISTS unit_rules (
		unit       TEXT PRIMARY KEY,
		rules      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS staff (
		unit                TEXT    NOT NULL,
		uid                 TEXT    NOT NULL,
		name                TEXT    NOT NULL,
		package             TEXT    NOT NULL DEFAULT '',
		group_name          TEXT    NOT NULL DEFAULT '',
		support             BOOLEAN NOT NULL DEFAULT FALSE,
		pregnant            BOOLEAN NOT NULL DEFAULT FALSE,
		pregnant_until      DATE,
		breastfeeding       BOOLEAN NOT NULL DEFAULT FALSE,
		breastfeeding_until DATE,
		preferences         JSONB,
		requested_off       INT[]   NOT NULL DEFAULT '{}',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		deleted_at          TIMESTAMPTZ,
		PRIMARY KEY (unit, uid)
	)`,
	`CREATE TABLE IF NOT EXISTS rosters (
		id         UUID PRIMARY KEY,
		run_id     UUID NOT NULL,
		unit       TEXT NOT NULL,
		year       INT  NOT NULL,
		month      INT  NOT NULL,
		strategy   TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'draft',
		gap_count  INT  NOT NULL,
		percent    DOUBLE PRECISION NOT NULL,
		chunks     INT  NOT NULL,
		metadata   JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rosters_unit_month ON rosters (unit, year, month, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS roster_grid_chunks (
		roster_id UUID  NOT NULL REFERENCES rosters (id) ON DELETE CASCADE,
		seq       INT   NOT NULL,
		data      BYTEA NOT NULL,
		PRIMARY KEY (roster_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS roster_tails (
		unit  TEXT   NOT NULL,
		year  INT    NOT NULL,
		month INT    NOT NULL,
		uid   TEXT   NOT NULL,
		codes TEXT[] NOT NULL,
		PRIMARY KEY (unit, year, month, uid)
	)`,
}

// Migrate 在一个事务中创建缺失的表
func (db *DB) Migrate(ctx context.Context) error {
	err := db.Transaction(ctx, func(q Querier) error {
		for i, stmt := range schema {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("执行建表语句 %d 失败: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info().Int("statements", len(schema)).Msg("数据库表结构已就绪")
	return nil
}
