package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// WeeklyCategoryCapConstraint 每周班别类别数上限约束（周一为一周开始）
type WeeklyCategoryCapConstraint struct {
	*BaseConstraint
	maxCategories int
}

// NewWeeklyCategoryCapConstraint 创建每周班别类别上限约束
func NewWeeklyCategoryCapConstraint(maxCategories int) *WeeklyCategoryCapConstraint {
	return &WeeklyCategoryCapConstraint{
		BaseConstraint: NewBaseConstraint(
			"每周班别类别上限",
			constraint.TypeWeeklyCategoryCap,
			constraint.CategoryHard,
			80,
		),
		maxCategories: maxCategories,
	}
}

// weekStart 返回 day 所在周的周一（可能落在上月）
func weekStart(ctx *constraint.Context, day int) int {
	offset := (int(ctx.Date(day).Weekday()) + 6) % 7
	return day - offset
}

// categories 统计一周内出现的班别类别
func (c *WeeklyCategoryCapConstraint) categories(ctx *constraint.Context, view constraint.StaffView, start int) map[model.ShiftCategory]bool {
	seen := make(map[model.ShiftCategory]bool, 3)
	for d := start; d < start+7; d++ {
		if shift := workingShift(ctx, view.At(d)); shift != nil {
			seen[shift.Category()] = true
		}
	}
	return seen
}

// Evaluate 评估整张排班表
func (c *WeeklyCategoryCapConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, s := range ctx.Staff {
		view := ctx.View(s)
		for start := weekStart(ctx, 1); start <= ctx.Days; start += 7 {
			seen := c.categories(ctx, view, start)
			if len(seen) <= c.maxCategories {
				continue
			}
			penalty := c.Weight() * (len(seen) - c.maxCategories)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(s.UID, start,
				fmt.Sprintf("员工 %s 在 %s 所在周出现 %d 类班别，超过 %d 类",
					s.Name, ctx.Date(start).Format(model.DateLayout), len(seen), c.maxCategories),
				penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 检查假设后所在周的类别数
func (c *WeeklyCategoryCapConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	if workingShift(ctx, code) == nil {
		return true, 0
	}
	seen := c.categories(ctx, view, weekStart(ctx, day))
	if len(seen) > c.maxCategories {
		return false, c.Weight() * (len(seen) - c.maxCategories)
	}
	return true, 0
}

// ProtectedNightConstraint 孕期/哺乳期夜间禁排约束
type ProtectedNightConstraint struct {
	*BaseConstraint
}

// NewProtectedNightConstraint 创建保护性身份夜班禁令
func NewProtectedNightConstraint() *ProtectedNightConstraint {
	return &ProtectedNightConstraint{
		BaseConstraint: NewBaseConstraint(
			"保护期夜间禁排",
			constraint.TypeProtectedNight,
			constraint.CategoryHard,
			100,
		),
	}
}

func (c *ProtectedNightConstraint) violates(ctx *constraint.Context, s *model.Staff, day int, code string) bool {
	shift := workingShift(ctx, code)
	return shift != nil && shift.IsNightTime() && s.ProtectedOn(ctx.Date(day))
}

// Evaluate 评估整张排班表
func (c *ProtectedNightConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, s := range ctx.Staff {
		for day := 1; day <= ctx.Days; day++ {
			code := ctx.Grid.Get(s.UID, day)
			if !c.violates(ctx, s, day, code) {
				continue
			}
			totalPenalty += c.Weight()
			violations = append(violations, c.CreateViolation(s.UID, day,
				fmt.Sprintf("员工 %s 处于保护期，第 %d 天不可排夜间班 %s", s.Name, day, code),
				c.Weight()))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *ProtectedNightConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	if c.violates(ctx, view.Staff, day, code) {
		return false, c.Weight()
	}
	return true, 0
}

// KnownShiftConstraint 班别必须存在于目录中
type KnownShiftConstraint struct {
	*BaseConstraint
}

// NewKnownShiftConstraint 创建班别目录约束
func NewKnownShiftConstraint() *KnownShiftConstraint {
	return &KnownShiftConstraint{
		BaseConstraint: NewBaseConstraint(
			"班别存在",
			constraint.TypeKnownShift,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整张排班表（空单元格同样视为违反）
func (c *KnownShiftConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail

	for _, s := range ctx.Staff {
		for day := 1; day <= ctx.Days; day++ {
			code := ctx.Grid.Get(s.UID, day)
			if model.IsRest(code) || (code != "" && ctx.Shift(code) != nil) {
				continue
			}
			violations = append(violations, c.CreateViolation(s.UID, day,
				fmt.Sprintf("员工 %s 第 %d 天的班别 %q 无效", s.Name, day, code),
				c.Weight()))
		}
	}

	return len(violations) == 0, len(violations) * c.Weight(), violations
}

// EvaluateAssignment 评估单个分配
func (c *KnownShiftConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	if model.IsRest(code) || ctx.Shift(code) != nil {
		return true, 0
	}
	return false, c.Weight()
}

