// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() int { return c.weight }

// CreateViolation 创建违反详情
func (c *BaseConstraint) CreateViolation(uid string, day int, message string, penalty int) constraint.ViolationDetail {
	severity := "warning"
	if c.category == constraint.CategoryHard {
		severity = "error"
	}

	return constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		UID:            uid,
		Day:            day,
		Message:        message,
		Severity:       severity,
		Penalty:        penalty,
	}
}

// Evaluate 默认评估实现（子类需覆盖）
func (c *BaseConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	return true, 0, nil
}

// EvaluateAssignment 默认分配评估实现（子类需覆盖）
func (c *BaseConstraint) EvaluateAssignment(ctx *constraint.Context, view constraint.StaffView, day int, code string) (bool, int) {
	return true, 0
}

// workingShift 返回上班代码对应的班别，休息或未知代码返回 nil
func workingShift(ctx *constraint.Context, code string) *model.ShiftType {
	if !model.IsWorking(code) {
		return nil
	}
	return ctx.Shift(code)
}

// restMinutes 计算相邻两天班次之间的休息分钟数
// 任一天不是已知上班班别时返回 ok=false
func restMinutes(ctx *constraint.Context, prevCode, nextCode string) (int, bool) {
	prev := workingShift(ctx, prevCode)
	next := workingShift(ctx, nextCode)
	if prev == nil || next == nil {
		return 0, false
	}
	return next.StartMinute() + model.MinutesPerDay - prev.EndMinute(), true
}

// runLength 计算包含 day 的连续上班天数（含上月尾部）
func runLength(view constraint.StaffView, day int) int {
	if !model.IsWorking(view.At(day)) {
		return 0
	}
	n := 1
	for d := day - 1; d >= view.FirstDay() && model.IsWorking(view.At(d)); d-- {
		n++
	}
	for d := day + 1; d <= view.LastDay() && model.IsWorking(view.At(d)); d++ {
		n++
	}
	return n
}
