package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/paiban/roster/internal/database"
	"github.com/paiban/roster/pkg/model"
)

// StaffRepository 员工与上月末尾班别仓储
type StaffRepository struct {
	db DB
}

// NewStaffRepository 创建员工仓储
func NewStaffRepository(db DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Upsert 按 (unit, uid) 写入员工
func (r *StaffRepository) Upsert(ctx context.Context, unit string, s *model.Staff) error {
	prefsJSON, err := json.Marshal(s.Preferences)
	if err != nil {
		return fmt.Errorf("序列化员工志愿失败: %w", err)
	}
	requested := make([]int64, len(s.RequestedOff))
	for i, d := range s.RequestedOff {
		requested[i] = int64(d)
	}

	query := `
		INSERT INTO staff (
			unit, uid, name, package, group_name, support,
			pregnant, pregnant_until, breastfeeding, breastfeeding_until,
			preferences, requested_off, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (unit, uid) DO UPDATE SET
			name = EXCLUDED.name, package = EXCLUDED.package, group_name = EXCLUDED.group_name,
			support = EXCLUDED.support, pregnant = EXCLUDED.pregnant,
			pregnant_until = EXCLUDED.pregnant_until, breastfeeding = EXCLUDED.breastfeeding,
			breastfeeding_until = EXCLUDED.breastfeeding_until, preferences = EXCLUDED.preferences,
			requested_off = EXCLUDED.requested_off, updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		unit, s.UID, s.Name, s.Package, s.Group, s.Support,
		s.Pregnant, nullTime(s.PregnantUntil), s.Breastfeeding, nullTime(s.BreastfeedingUntil),
		prefsJSON, pq.Array(requested), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("写入员工 %s 失败: %w", s.UID, err)
	}
	return nil
}

// List 列出病区全部在岗员工（按 uid 排序）
func (r *StaffRepository) List(ctx context.Context, unit string) ([]*model.Staff, error) {
	query := `
		SELECT uid, name, package, group_name, support,
			pregnant, pregnant_until, breastfeeding, breastfeeding_until,
			preferences, requested_off
		FROM staff
		WHERE unit = $1 AND deleted_at IS NULL
		ORDER BY uid
	`
	rows, err := r.db.QueryContext(ctx, query, unit)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var staff []*model.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

func scanStaff(row Scanner) (*model.Staff, error) {
	s := &model.Staff{}
	var pregnantUntil, breastfeedingUntil sql.NullTime
	var prefsJSON []byte
	var requested []int64

	if err := row.Scan(
		&s.UID, &s.Name, &s.Package, &s.Group, &s.Support,
		&s.Pregnant, &pregnantUntil, &s.Breastfeeding, &breastfeedingUntil,
		&prefsJSON, pq.Array(&requested),
	); err != nil {
		return nil, fmt.Errorf("扫描员工失败: %w", err)
	}

	s.PregnantUntil = pregnantUntil.Time
	s.BreastfeedingUntil = breastfeedingUntil.Time
	if len(prefsJSON) > 0 && string(prefsJSON) != "null" {
		if err := json.Unmarshal(prefsJSON, &s.Preferences); err != nil {
			return nil, fmt.Errorf("解析员工 %s 志愿失败: %w", s.UID, err)
		}
	}
	for _, d := range requested {
		s.RequestedOff = append(s.RequestedOff, int(d))
	}
	return s, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// SaveTail 从本月排班表截取月末 days 天，作为下月的连续性依据
func (r *StaffRepository) SaveTail(ctx context.Context, unit string, year, month int, grid model.Grid, days int) error {
	tail := TailOf(grid, model.DaysIn(year, time.Month(month)), days)
	return r.db.Transaction(ctx, func(q database.Querier) error {
		for uid, codes := range tail {
			_, err := q.ExecContext(ctx, `
				INSERT INTO roster_tails (unit, year, month, uid, codes)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (unit, year, month, uid) DO UPDATE SET codes = EXCLUDED.codes
			`, unit, year, month, uid, pq.Array(codes))
			if err != nil {
				return fmt.Errorf("写入员工 %s 月末班别失败: %w", uid, err)
			}
		}
		return nil
	})
}

// LoadTail 读取上月末尾班别（year/month 为本月）
func (r *StaffRepository) LoadTail(ctx context.Context, unit string, year, month int) (model.Tail, error) {
	prev := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	rows, err := r.db.QueryContext(ctx,
		"SELECT uid, codes FROM roster_tails WHERE unit = $1 AND year = $2 AND month = $3",
		unit, prev.Year(), int(prev.Month()))
	if err != nil {
		return nil, fmt.Errorf("查询月末班别失败: %w", err)
	}
	defer rows.Close()

	tail := model.Tail{}
	for rows.Next() {
		var uid string
		var codes []string
		if err := rows.Scan(&uid, pq.Array(&codes)); err != nil {
			return nil, fmt.Errorf("扫描月末班别失败: %w", err)
		}
		tail[uid] = codes
	}
	return tail, rows.Err()
}

// TailOf 截取每名员工最后 n 天的班别，最后一个元素为月末
func TailOf(grid model.Grid, daysInMonth, n int) model.Tail {
	n = min(n, daysInMonth)
	tail := make(model.Tail, len(grid))
	for uid, row := range grid {
		codes := make([]string, 0, n)
		for day := daysInMonth - n + 1; day <= daysInMonth; day++ {
			code := row[day]
			if code == "" {
				code = model.CodeOff
			}
			codes = append(codes, code)
		}
		tail[uid] = codes
	}
	return tail
}
