package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paiban/roster/internal/database"
	"github.com/paiban/roster/pkg/model"
)

// UnitRepository 病区班别目录与规则仓储
type UnitRepository struct {
	db DB
}

// NewUnitRepository 创建病区仓储
func NewUnitRepository(db DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// SaveShifts 替换病区班别目录
func (r *UnitRepository) SaveShifts(ctx context.Context, unit string, catalog model.ShiftCatalog) error {
	return r.db.Transaction(ctx, func(q database.Querier) error {
		if _, err := q.ExecContext(ctx, "DELETE FROM shift_types WHERE unit = $1", unit); err != nil {
			return fmt.Errorf("清空班别目录失败: %w", err)
		}
		for i, st := range catalog.Types {
			_, err := q.ExecContext(ctx, `
				INSERT INTO shift_types (
					unit, code, name, start_time, end_time, duration_minutes,
					is_night, is_evening, sort_order
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, unit, st.Code, st.Name, st.StartTime, st.EndTime, st.DurationMinutes,
				st.IsNight, st.IsEvening, i)
			if err != nil {
				return fmt.Errorf("写入班别 %s 失败: %w", st.Code, err)
			}
		}
		return nil
	})
}

// LoadShifts 读取病区班别目录（保持录入顺序）
func (r *UnitRepository) LoadShifts(ctx context.Context, unit string) (model.ShiftCatalog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, name, start_time, end_time, duration_minutes, is_night, is_evening
		FROM shift_types
		WHERE unit = $1
		ORDER BY sort_order
	`, unit)
	if err != nil {
		return model.ShiftCatalog{}, fmt.Errorf("查询班别目录失败: %w", err)
	}
	defer rows.Close()

	var types []*model.ShiftType
	for rows.Next() {
		st := &model.ShiftType{}
		if err := rows.Scan(&st.Code, &st.Name, &st.StartTime, &st.EndTime,
			&st.DurationMinutes, &st.IsNight, &st.IsEvening); err != nil {
			return model.ShiftCatalog{}, fmt.Errorf("扫描班别失败: %w", err)
		}
		types = append(types, st)
	}
	if err := rows.Err(); err != nil {
		return model.ShiftCatalog{}, err
	}
	return model.NewShiftCatalog(types), nil
}

// SaveRules 保存病区规则（不含班别目录）
func (r *UnitRepository) SaveRules(ctx context.Context, unit string, rules model.Rules) error {
	rules.Shifts = model.ShiftCatalog{}
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("序列化规则失败: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO unit_rules (unit, rules, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (unit) DO UPDATE SET rules = EXCLUDED.rules, updated_at = EXCLUDED.updated_at
	`, unit, data, time.Now())
	if err != nil {
		return fmt.Errorf("保存规则失败: %w", err)
	}
	return nil
}

// LoadRules 读取病区规则与班别目录
// 存储的规则覆盖在 defaults 之上，未配置规则时直接使用 defaults
func (r *UnitRepository) LoadRules(ctx context.Context, unit string, defaults model.Rules) (model.Rules, error) {
	rules := defaults.Clone()
	rules.ApplyDefaults()
	var data []byte
	err := r.db.QueryRowContext(ctx, "SELECT rules FROM unit_rules WHERE unit = $1", unit).Scan(&data)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return rules, fmt.Errorf("查询规则失败: %w", err)
	default:
		if err := json.Unmarshal(data, &rules); err != nil {
			return rules, fmt.Errorf("解析规则失败: %w", err)
		}
	}

	catalog, err := r.LoadShifts(ctx, unit)
	if err != nil {
		return rules, err
	}
	rules.Shifts = catalog
	return rules, nil
}
