package builtin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// 2026 年 3 月：1 日为周日，2 日为周一
func newTestInput(staff ...*model.Staff) *model.Input {
	rules := model.DefaultRules()
	rules.Shifts = model.NewShiftCatalog([]*model.ShiftType{
		{Code: "D", StartTime: "08:00", EndTime: "16:00"},
		{Code: "E", StartTime: "16:00", EndTime: "24:00", IsEvening: true},
		{Code: "N", StartTime: "00:00", EndTime: "08:00", IsNight: true},
	})
	return &model.Input{Year: 2026, Month: time.March, Staff: staff, Tail: model.Tail{}, Rules: rules}
}

func offGrid(in *model.Input) model.Grid {
	g := model.Grid{}
	for _, s := range in.Staff {
		row := make(map[int]string, in.DaysInMonth())
		for d := 1; d <= in.DaysInMonth(); d++ {
			row[d] = model.CodeOff
		}
		g[s.UID] = row
	}
	return g
}

func canAssign(t *testing.T, c constraint.Constraint, ctx *constraint.Context, s *model.Staff, day int, code string) bool {
	t.Helper()
	ok, _ := c.EvaluateAssignment(ctx, ctx.View(s).Assume(day, code), day, code)
	return ok
}

func TestMinRestGapConstraint(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	grid := offGrid(in)
	ctx := constraint.NewContext(in, grid)
	c := NewMinRestGapConstraint(11)

	grid["u1"][5] = "E"
	assert.False(t, canAssign(t, c, ctx, s, 6, "D"), "小夜班后次日白班仅休息 8 小时")
	assert.False(t, canAssign(t, c, ctx, s, 6, "N"), "小夜班后接大夜班无休息")
	assert.True(t, canAssign(t, c, ctx, s, 6, "E"))

	grid["u1"][20] = "N"
	assert.False(t, canAssign(t, c, ctx, s, 19, "D"), "白班后次日大夜班同样需检查后一天")
	assert.True(t, canAssign(t, c, ctx, s, 19, "N"))

	grid["u1"][10] = "N"
	assert.True(t, canAssign(t, c, ctx, s, 11, "D"))
	assert.True(t, canAssign(t, c, ctx, s, 11, "E"))
}

func TestMinRestGapConstraint_MonthBoundary(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	in.Tail["u1"] = []string{"D", "E"}
	ctx := constraint.NewContext(in, offGrid(in))
	c := NewMinRestGapConstraint(11)

	assert.False(t, canAssign(t, c, ctx, s, 1, "D"))
	assert.True(t, canAssign(t, c, ctx, s, 1, "E"))
	assert.True(t, canAssign(t, c, ctx, s, 2, "D"))
}

func TestMaxConsecutiveDaysConstraint_Tail(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	in.Tail["u1"] = []string{"D", "D", "D", "D", "D"}
	grid := offGrid(in)
	ctx := constraint.NewContext(in, grid)
	c := NewMaxConsecutiveDaysConstraint(6)

	require.True(t, canAssign(t, c, ctx, s, 1, "D"), "上月连续 5 天后第 1 天为第 6 天")
	grid["u1"][1] = "D"
	assert.False(t, canAssign(t, c, ctx, s, 2, "D"), "第 7 个连续上班日必须休息")
	assert.True(t, canAssign(t, c, ctx, s, 3, "D"))

	// 后续已排的上班日同样计入
	for d := 3; d <= 8; d++ {
		grid["u1"][d] = "D"
	}
	assert.False(t, canAssign(t, c, ctx, s, 9, "D"))
	assert.False(t, canAssign(t, c, ctx, s, 2, "D"))
	assert.True(t, canAssign(t, c, ctx, s, 10, "D"))
}

func TestWeeklyCategoryCapConstraint(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	grid := offGrid(in)
	ctx := constraint.NewContext(in, grid)
	c := NewWeeklyCategoryCapConstraint(2)

	// 第 2-8 天为同一周
	grid["u1"][2] = "D"
	grid["u1"][4] = "N"
	assert.False(t, canAssign(t, c, ctx, s, 6, "E"))
	assert.True(t, canAssign(t, c, ctx, s, 6, "N"))
	assert.True(t, canAssign(t, c, ctx, s, 9, "E"), "下一周重新计数")
}

func TestWeeklyCategoryCapConstraint_TailWeek(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	// 上月 26 日(周四)至 28 日(周六)
	in.Tail["u1"] = []string{"D", "N", model.CodeOff}
	ctx := constraint.NewContext(in, offGrid(in))
	c := NewWeeklyCategoryCapConstraint(2)

	assert.False(t, canAssign(t, c, ctx, s, 1, "E"), "3 月 1 日与上月尾部同周")
	assert.True(t, canAssign(t, c, ctx, s, 2, "E"))
}

func TestProtectedNightConstraint(t *testing.T) {
	pregnant := &model.Staff{UID: "p1", Name: "孕", Pregnant: true, PregnantUntil: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)}
	in := newTestInput(pregnant)
	ctx := constraint.NewContext(in, offGrid(in))
	c := NewProtectedNightConstraint()

	assert.False(t, canAssign(t, c, ctx, pregnant, 10, "N"))
	assert.False(t, canAssign(t, c, ctx, pregnant, 10, "E"), "小夜班跨入 22 点")
	assert.True(t, canAssign(t, c, ctx, pregnant, 10, "D"))
	assert.True(t, canAssign(t, c, ctx, pregnant, 21, "N"), "保护期已过")
}

func TestRestWindowConstraint(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	grid := offGrid(in)
	ctx := constraint.NewContext(in, grid)
	c := NewRestWindowConstraint(7, 2)

	for d := 1; d <= 5; d++ {
		grid["u1"][d] = "D"
	}
	assert.False(t, canAssign(t, c, ctx, s, 6, "D"), "7 天内只剩 1 天休息")
	assert.True(t, canAssign(t, c, ctx, s, 8, "D"))
}

func TestKnownShiftConstraint(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲"}
	in := newTestInput(s)
	ctx := constraint.NewContext(in, offGrid(in))
	c := NewKnownShiftConstraint()

	assert.True(t, canAssign(t, c, ctx, s, 1, "D"))
	assert.True(t, canAssign(t, c, ctx, s, 1, model.CodeOff))
	assert.False(t, canAssign(t, c, ctx, s, 1, "X"))
}

func TestRosterManager_EvaluateAudit(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲", Breastfeeding: true}
	in := newTestInput(s)
	in.Tail["u1"] = []string{"D", "D", "D"}
	grid := offGrid(in)
	for d := 1; d <= 4; d++ {
		grid["u1"][d] = "D"
	}
	grid["u1"][10] = "E"
	grid["u1"][11] = "D"
	grid["u1"][20] = "N"

	manager := NewRosterManager(&in.Rules)
	result := manager.Evaluate(constraint.NewContext(in, grid))
	require.False(t, result.IsValid)

	types := map[constraint.Type]int{}
	for _, v := range result.HardViolations {
		types[v.ConstraintType]++
	}
	assert.Equal(t, 1, types[constraint.TypeMaxConsecutiveDays], "第 4 天为连续第 7 天")
	assert.Equal(t, 1, types[constraint.TypeMinRestGap])
	assert.Equal(t, 2, types[constraint.TypeProtectedNight], "小夜班与大夜班均落入夜间")
	assert.Zero(t, types[constraint.TypeWeeklyCategoryCap])
}

func TestRosterManager_CleanGrid(t *testing.T) {
	s := &model.Staff{UID: "u1", Name: "甲", Preferences: map[int][]string{3: {"D"}}}
	in := newTestInput(s)
	grid := offGrid(in)
	grid["u1"][3] = "D"
	grid["u1"][4] = "D"

	manager := NewRosterManager(&in.Rules)
	result := manager.Evaluate(constraint.NewContext(in, grid))
	assert.True(t, result.IsValid)
	assert.Empty(t, result.SoftViolations)

	ok, _ := manager.CanAssign(constraint.NewContext(in, grid), s, 5, "N")
	assert.False(t, ok, "白班后次日大夜班违反间隔")
}
