package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// StaffPreferenceConstraint 第一志愿满足约束（软约束）
type StaffPreferenceConstraint struct {
	*BaseConstraint
}

// NewStaffPreferenceConstraint 创建志愿约束
func NewStaffPreferenceConstraint(weight int) *StaffPreferenceConstraint {
	return &StaffPreferenceConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工志愿",
			constraint.TypeStaffPreference,
			constraint.CategorySoft,
			weight,
		),
	}
}

// honoured 检查实际代码是否满足志愿，休息志愿对 OFF 与 REQ_OFF 都算满足
func honoured(want, got string) bool {
	if model.IsRest(want) {
		return model.IsRest(got)
	}
	return want == got
}

// Evaluate 评估整张排班表
func (c *StaffPreferenceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	penalty := c.Weight() / 2

	for _, s := range ctx.Staff {
		for day := 1; day <= ctx.Days; day++ {
			want, ok := s.PreferenceAt(day, 1)
			if !ok {
				continue
			}
			got := ctx.Grid.Get(s.UID, day)
			if honoured(want, got) {
				continue
			}
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(s.UID, day,
				fmt.Sprintf("员工 %s 第 %d 天第一志愿 %s，实际 %s", s.Name, day, want, got),
				penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *StaffPreferenceConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	want, ok := view.Staff.PreferenceAt(day, 1)
	if !ok || honoured(want, code) {
		return true, 0
	}
	return false, c.Weight() / 2
}
