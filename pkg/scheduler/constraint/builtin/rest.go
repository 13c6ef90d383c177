package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// MinRestGapConstraint 相邻班次最小休息间隔约束
type MinRestGapConstraint struct {
	*BaseConstraint
	minHours int
}

// NewMinRestGapConstraint 创建最小休息间隔约束
func NewMinRestGapConstraint(minHours int) *MinRestGapConstraint {
	return &MinRestGapConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次间最小休息",
			constraint.TypeMinRestGap,
			constraint.CategoryHard,
			100,
		),
		minHours: minHours,
	}
}

// Evaluate 评估整张排班表（含跨月边界）
func (c *MinRestGapConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, s := range ctx.Staff {
		view := ctx.View(s)
		for day := 1; day <= ctx.Days; day++ {
			gap, ok := restMinutes(ctx, view.At(day-1), view.At(day))
			if !ok || gap >= c.minHours*60 {
				continue
			}
			penalty := c.Weight() * (c.minHours*60 - gap) / 60
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(s.UID, day,
				fmt.Sprintf("员工 %s 第 %d 天与前一天间隔仅 %.1f 小时，少于要求的 %d 小时",
					s.Name, day, float64(gap)/60, c.minHours),
				penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 检查与前后两天的间隔
func (c *MinRestGapConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	min := c.minHours * 60
	if gap, ok := restMinutes(ctx, view.At(day-1), code); ok && gap < min {
		return false, c.Weight() * (min - gap) / 60
	}
	if gap, ok := restMinutes(ctx, code, view.At(day+1)); ok && gap < min {
		return false, c.Weight() * (min - gap) / 60
	}
	return true, 0
}

// MaxConsecutiveDaysConstraint 最大连续上班天数约束
type MaxConsecutiveDaysConstraint struct {
	*BaseConstraint
	maxDays int
}

// NewMaxConsecutiveDaysConstraint 创建最大连续上班天数约束
func NewMaxConsecutiveDaysConstraint(maxDays int) *MaxConsecutiveDaysConstraint {
	return &MaxConsecutiveDaysConstraint{
		BaseConstraint: NewBaseConstraint(
			"最大连续工作天数",
			constraint.TypeMaxConsecutiveDays,
			constraint.CategoryHard,
			100,
		),
		maxDays: maxDays,
	}
}

// Evaluate 评估整张排班表
// 只在当月日期上报告，上月尾部本身的超限不计入
func (c *MaxConsecutiveDaysConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, s := range ctx.Staff {
		view := ctx.View(s)
		run := 0
		for day := view.FirstDay(); day <= view.LastDay(); day++ {
			if !model.IsWorking(view.At(day)) {
				run = 0
				continue
			}
			run++
			if run > c.maxDays && day >= 1 {
				penalty := c.Weight()
				totalPenalty += penalty
				violations = append(violations, c.CreateViolation(s.UID, day,
					fmt.Sprintf("员工 %s 截至第 %d 天已连续上班 %d 天，超过 %d 天", s.Name, day, run, c.maxDays),
					penalty))
			}
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 检查假设后的连续天数
func (c *MaxConsecutiveDaysConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	if !model.IsWorking(code) {
		return true, 0
	}
	if run := runLength(view, day); run > c.maxDays {
		return false, c.Weight() * (run - c.maxDays)
	}
	return true, 0
}

// RestWindowConstraint 休息间隔上限约束：任意连续 window 天内至少 minRest 天休息
type RestWindowConstraint struct {
	*BaseConstraint
	window  int
	minRest int
}

// NewRestWindowConstraint 创建休息窗口约束
func NewRestWindowConstraint(window, minRest int) *RestWindowConstraint {
	return &RestWindowConstraint{
		BaseConstraint: NewBaseConstraint(
			"休息间隔上限",
			constraint.TypeRestWindow,
			constraint.CategoryHard,
			90,
		),
		window:  window,
		minRest: minRest,
	}
}

// restCount 统计 [start, start+window) 内的休息天数
func (c *RestWindowConstraint) restCount(view constraint.StaffView, start int) int {
	n := 0
	for d := start; d < start+c.window; d++ {
		if !model.IsWorking(view.At(d)) {
			n++
		}
	}
	return n
}

// Evaluate 评估整张排班表
// 只检查完全落在已知范围内且包含当月日期的窗口
func (c *RestWindowConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, s := range ctx.Staff {
		view := ctx.View(s)
		start := view.FirstDay()
		if start < 2-c.window {
			start = 2 - c.window
		}
		for ; start+c.window-1 <= view.LastDay(); start++ {
			if rest := c.restCount(view, start); rest < c.minRest {
				penalty := c.Weight() * (c.minRest - rest)
				totalPenalty += penalty
				violations = append(violations, c.CreateViolation(s.UID, start+c.window-1,
					fmt.Sprintf("员工 %s 在第 %d 至 %d 天内休息 %d 天，少于 %d 天",
						s.Name, start, start+c.window-1, rest, c.minRest),
					penalty))
			}
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 检查包含 day 的所有完整窗口
func (c *RestWindowConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	if !model.IsWorking(code) {
		return true, 0
	}
	for start := day - c.window + 1; start <= day; start++ {
		if start < view.FirstDay() || start+c.window-1 > view.LastDay() {
			continue
		}
		if rest := c.restCount(view, start); rest < c.minRest {
			return false, c.Weight() * (c.minRest - rest)
		}
	}
	return true, 0
}
