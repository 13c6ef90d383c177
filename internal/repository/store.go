package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/roster/pkg/model"
)

// Store 排班引擎的存储适配器：读取一次运行的输入，保存选定的结果
type Store struct {
	Rosters *RosterRepository
	Staff   *StaffRepository
	Units   *UnitRepository

	defaults model.Rules
}

// NewStore 创建存储适配器，defaults 为病区未配置的规则项取值
func NewStore(db DB, chunkBytes int, defaults model.Rules) *Store {
	return &Store{
		Rosters:  NewRosterRepository(db, chunkBytes),
		Staff:    NewStaffRepository(db),
		Units:    NewUnitRepository(db),
		defaults: defaults,
	}
}

// ImportUnit 保存病区的班别目录、规则与员工
func (s *Store) ImportUnit(ctx context.Context, unit string, in *model.Input) error {
	if err := s.Units.SaveShifts(ctx, unit, in.Rules.Shifts); err != nil {
		return err
	}
	if err := s.Units.SaveRules(ctx, unit, in.Rules); err != nil {
		return err
	}
	for _, st := range in.Staff {
		if err := s.Staff.Upsert(ctx, unit, st); err != nil {
			return err
		}
	}
	return nil
}

// LoadInput 组装某病区某月的排班输入
func (s *Store) LoadInput(ctx context.Context, unit string, year, month int) (*model.Input, error) {
	rules, err := s.Units.LoadRules(ctx, unit, s.defaults)
	if err != nil {
		return nil, err
	}
	if len(rules.Shifts.Types) == 0 {
		return nil, fmt.Errorf("病区 %s 未配置班别: %w", unit, ErrNotFound)
	}
	staff, err := s.Staff.List(ctx, unit)
	if err != nil {
		return nil, err
	}
	tail, err := s.Staff.LoadTail(ctx, unit, year, month)
	if err != nil {
		return nil, err
	}
	return &model.Input{
		Year:  year,
		Month: time.Month(month),
		Staff: staff,
		Tail:  tail,
		Rules: rules,
	}, nil
}

// SaveResult 保存排班表，并记录月末班别供下月使用
func (s *Store) SaveResult(ctx context.Context, unit string, in *model.Input, runID uuid.UUID, strategy string, grid model.Grid, gap int, percent float64) (*Roster, error) {
	roster := &Roster{
		RunID:    runID,
		Unit:     unit,
		Year:     in.Year,
		Month:    int(in.Month),
		Strategy: strategy,
		GapCount: gap,
		Percent:  percent,
	}
	if err := s.Rosters.Save(ctx, roster, grid); err != nil {
		return nil, err
	}

	days := max(in.Rules.MaxConsecutiveDays, in.Rules.RestWindowDays)
	if err := s.Staff.SaveTail(ctx, unit, in.Year, int(in.Month), grid, days); err != nil {
		return roster, err
	}
	return roster, nil
}

// IsNotFound 检查是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// LoadRoster 读取排班表及其完整数据
func (s *Store) LoadRoster(ctx context.Context, id uuid.UUID) (*Roster, model.Grid, error) {
	roster, err := s.Rosters.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	grid, err := s.Rosters.LoadGrid(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return roster, grid, nil
}

// ListRosters 按过滤条件分页列出排班记录
func (s *Store) ListRosters(ctx context.Context, filter ListFilter) ([]*Roster, int, error) {
	return s.Rosters.List(ctx, filter)
}

// LatestRoster 某病区某月最近生成的排班记录
func (s *Store) LatestRoster(ctx context.Context, unit string, year, month int) (*Roster, error) {
	return s.Rosters.Latest(ctx, unit, year, month)
}

// PublishRoster 将排班表标记为已发布
func (s *Store) PublishRoster(ctx context.Context, id uuid.UUID) error {
	return s.Rosters.UpdateStatus(ctx, id, StatusPublished)
}

// DeleteRoster 删除排班表及其分块
func (s *Store) DeleteRoster(ctx context.Context, id uuid.UUID) error {
	return s.Rosters.Delete(ctx, id)
}
