// Package constraint 定义约束接口和管理器
package constraint

import (
	"time"

	"github.com/paiban/roster/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeMinRestGap         Type = "min_rest_gap"
	TypeWeeklyCategoryCap  Type = "weekly_category_cap"
	TypeMaxConsecutiveDays Type = "max_consecutive_days"
	TypeRestWindow         Type = "rest_window"
	TypeProtectedNight     Type = "protected_night"
	TypeKnownShift         Type = "known_shift"

	// 软约束类型
	TypeStaffPreference Type = "staff_preference"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重 (1-100)
	Weight() int

	// Evaluate 评估整张排班表
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateAssignment 评估把 view 所属员工第 day 天排为 code
	// view 已包含该假设值
	EvaluateAssignment(ctx *Context, view StaffView, day int, code string) (valid bool, penalty int)
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	UID            string `json:"uid,omitempty"`
	Day            int    `json:"day,omitempty"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
	Penalty        int    `json:"penalty"`
}

// Context 约束评估上下文
// Grid 与调度上下文共享，评估过程只读
type Context struct {
	Year  int
	Month time.Month
	Days  int
	Rules *model.Rules
	Staff []*model.Staff
	Tail  model.Tail
	Grid  model.Grid
}

// NewContext 创建约束评估上下文
func NewContext(in *model.Input, grid model.Grid) *Context {
	return &Context{
		Year:  in.Year,
		Month: in.Month,
		Days:  in.DaysInMonth(),
		Rules: &in.Rules,
		Staff: in.Staff,
		Tail:  in.Tail,
		Grid:  grid,
	}
}

// Date 返回第 day 天的日期（day 可越出当月）
func (c *Context) Date(day int) time.Time {
	return model.DateOf(c.Year, c.Month, day)
}

// Shift 按代码获取班别
func (c *Context) Shift(code string) *model.ShiftType {
	return c.Rules.Shifts.Get(code)
}

// View 返回员工的排班视图
func (c *Context) View(s *model.Staff) StaffView {
	return StaffView{
		Staff: s,
		row:   c.Grid[s.UID],
		tail:  c.Tail[s.UID],
		days:  c.Days,
	}
}

// StaffView 单个员工的排班视图：上月尾部 + 当月行，可叠加一个假设值
type StaffView struct {
	Staff *model.Staff

	row  map[int]string
	tail []string
	days int

	assumed     bool
	assumedDay  int
	assumedCode string
}

// Assume 返回叠加了假设单元格的视图
func (v StaffView) Assume(day int, code string) StaffView {
	v.assumed = true
	v.assumedDay = day
	v.assumedCode = code
	return v
}

// At 返回第 day 天的代码
// day <= 0 取上月尾部（0 为上月最后一天），超出已知范围返回空串
func (v StaffView) At(day int) string {
	if v.assumed && day == v.assumedDay {
		return v.assumedCode
	}
	if day >= 1 {
		if day > v.days {
			return ""
		}
		return v.row[day]
	}
	idx := len(v.tail) - 1 + day
	if idx < 0 {
		return ""
	}
	return v.tail[idx]
}

// FirstDay 返回已知范围的第一天（含上月尾部）
func (v StaffView) FirstDay() int {
	return 1 - len(v.tail)
}

// LastDay 返回当月最后一天
func (v StaffView) LastDay() int {
	return v.days
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Score          float64           `json:"score"` // 0-100
}

// CalculateScore 计算约束满足度得分
func (r *Result) CalculateScore(maxPenalty int) {
	if maxPenalty == 0 {
		r.Score = 100.0
		return
	}
	r.Score = 100.0 * float64(maxPenalty-r.TotalPenalty) / float64(maxPenalty)
	if r.Score < 0 {
		r.Score = 0
	}
}
