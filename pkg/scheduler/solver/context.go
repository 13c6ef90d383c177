// Package solver 提供排班上下文与填充策略
package solver

import (
	"sort"
	"time"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/eligibility"
)

// Context 一次策略运行的可变状态
// 排班表只能经由 UpdateShift 修改，计数器与覆盖数同步维护；非并发安全
type Context struct {
	in    *model.Input
	days  int
	staff []*model.Staff
	byUID map[string]*model.Staff
	codes []string

	grid     model.Grid
	counters map[string]*model.Counters
	assigned map[int]map[string]int
	demand   map[int]map[string]int

	cctx     *constraint.Context
	manager  *constraint.Manager
	resolver *eligibility.Resolver
}

// NewContext 创建调度上下文，in 归本次运行独占
func NewContext(in *model.Input, policy eligibility.Policy, manager *constraint.Manager) *Context {
	c := &Context{
		in:       in,
		days:     in.DaysInMonth(),
		byUID:    make(map[string]*model.Staff, len(in.Staff)),
		codes:    in.Rules.Shifts.Codes(),
		grid:     make(model.Grid, len(in.Staff)),
		counters: make(map[string]*model.Counters, len(in.Staff)),
		assigned: make(map[int]map[string]int),
		demand:   make(map[int]map[string]int),
		manager:  manager,
		resolver: eligibility.NewResolver(policy, &in.Rules),
	}

	c.staff = append([]*model.Staff(nil), in.Staff...)
	sort.SliceStable(c.staff, func(i, j int) bool { return c.staff[i].UID < c.staff[j].UID })

	for _, s := range c.staff {
		c.byUID[s.UID] = s
		row := make(map[int]string, c.days)
		counters := model.NewCounters()
		for day := 1; day <= c.days; day++ {
			code := model.CodeOff
			if s.PinnedOff(day) {
				code = model.CodeReqOff
			}
			row[day] = code
			counters.Add(code)
		}
		c.grid[s.UID] = row
		c.counters[s.UID] = counters
	}

	for day := 1; day <= c.days; day++ {
		date := in.Date(day)
		c.assigned[day] = make(map[string]int, len(c.codes))
		c.demand[day] = make(map[string]int, len(c.codes))
		for _, t := range in.Rules.Shifts.Types {
			c.demand[day][t.Code] = in.Rules.Demand.For(date, day, t)
		}
	}

	c.cctx = constraint.NewContext(in, c.grid)
	return c
}

// Input 返回本次运行的输入
func (c *Context) Input() *model.Input { return c.in }

// Rules 返回规则
func (c *Context) Rules() *model.Rules { return &c.in.Rules }

// Days 返回当月天数
func (c *Context) Days() int { return c.days }

// Date 返回第 day 天的日期
func (c *Context) Date(day int) time.Time { return c.in.Date(day) }

// Staff 返回按 uid 排序的员工
func (c *Context) Staff() []*model.Staff { return c.staff }

// Codes 返回班别代码（目录顺序）
func (c *Context) Codes() []string { return c.codes }

// Cell 返回单元格
func (c *Context) Cell(uid string, day int) string {
	return c.grid[uid][day]
}

// Counters 返回员工计数器
func (c *Context) Counters(uid string) *model.Counters {
	return c.counters[uid]
}

// Grid 返回排班表副本
func (c *Context) Grid() model.Grid {
	return c.grid.Clone()
}

// UpdateShift 把员工第 day 天从 from 改为 to
// 要求当前值等于 from，预约休息格双向都不可触碰；不做规则校验
func (c *Context) UpdateShift(day int, uid, from, to string) error {
	row, ok := c.grid[uid]
	if !ok {
		return apperrors.NotFound("员工", uid)
	}
	if day < 1 || day > c.days {
		return apperrors.InvalidInput("day", "超出当月范围")
	}
	current := row[day]
	if current == model.CodeReqOff || to == model.CodeReqOff {
		return apperrors.PinnedCell(uid, day)
	}
	if current != from {
		return apperrors.CellConflict(uid, day, from, current)
	}
	if from == to {
		return nil
	}

	row[day] = to
	counters := c.counters[uid]
	counters.Remove(from)
	counters.Add(to)
	if model.IsWorking(from) {
		c.assigned[day][from]--
	}
	if model.IsWorking(to) {
		c.assigned[day][to]++
	}
	return nil
}

// Demand 返回某天某班别的需求人数
func (c *Context) Demand(day int, code string) int {
	return c.demand[day][code]
}

// Assigned 返回某天某班别已排人数
func (c *Context) Assigned(day int, code string) int {
	return c.assigned[day][code]
}

// Gap 返回缺口（不小于 0）
func (c *Context) Gap(day int, code string) int {
	if gap := c.demand[day][code] - c.assigned[day][code]; gap > 0 {
		return gap
	}
	return 0
}

// TotalGap 返回全月缺口总数
func (c *Context) TotalGap() int {
	total := 0
	for day := 1; day <= c.days; day++ {
		for _, code := range c.codes {
			total += c.Gap(day, code)
		}
	}
	return total
}

// Preference 返回员工第 day 天第 rank 志愿
func (c *Context) Preference(uid string, day, rank int) (string, bool) {
	s := c.byUID[uid]
	if s == nil {
		return "", false
	}
	return s.PreferenceAt(day, rank)
}

// Eligible 包班白名单判定，使用当前剩余需求
func (c *Context) Eligible(s *model.Staff, day int, code string) bool {
	return c.resolver.Allowed(s, day, code, c.Gap)
}

// IsValidContinuity 完整硬约束检查（含上月尾部）
func (c *Context) IsValidContinuity(s *model.Staff, day int, code string) bool {
	ok, _ := c.manager.CanAssign(c.cctx, s, day, code)
	return ok
}

// RowValid 重新校验员工整行的每个上班格
func (c *Context) RowValid(s *model.Staff) bool {
	for day := 1; day <= c.days; day++ {
		code := c.grid[s.UID][day]
		if !model.IsWorking(code) {
			continue
		}
		if ok, _ := c.manager.CanAssign(c.cctx, s, day, code); !ok {
			return false
		}
	}
	return true
}
