package constraint

import (
	"testing"
	"time"

	"github.com/paiban/roster/pkg/model"
)

func newTestContext() *Context {
	in := &model.Input{
		Year:  2026,
		Month: time.March,
		Staff: []*model.Staff{{UID: "u1", Name: "甲"}},
		Tail:  model.Tail{"u1": {"D", "N"}},
		Rules: model.DefaultRules(),
	}
	grid := model.Grid{"u1": {1: "D", 2: model.CodeOff}}
	return NewContext(in, grid)
}

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "test", typ: Type("test_type"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "test2", typ: Type("test_type"), category: CategoryHard})

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Fatalf("Expected 1 constraint, got %d", len(constraints))
	}
	if constraints[0].Name() != "test2" {
		t.Errorf("同类型约束应被替换, got %s", constraints[0].Name())
	}
}

func TestManager_GetByCategory(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "soft1", typ: Type("soft1"), category: CategorySoft})
	manager.Register(&MockConstraint{name: "hard1", typ: Type("hard1"), category: CategoryHard})

	if got := manager.GetByCategory(CategoryHard); len(got) != 1 {
		t.Errorf("Expected 1 hard constraint, got %d", len(got))
	}
	if got := manager.GetByCategory(CategorySoft); len(got) != 1 {
		t.Errorf("Expected 1 soft constraint, got %d", len(got))
	}
	if all := manager.GetAll(); all[0].Category() != CategoryHard {
		t.Error("硬约束应排在前面")
	}
}

func TestManager_Evaluate(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "pass", typ: Type("pass_type"), category: CategoryHard, pass: true})

	result := manager.Evaluate(newTestContext())
	if !result.IsValid {
		t.Error("Expected valid result")
	}
	if result.TotalPenalty != 0 {
		t.Errorf("Expected 0 penalty, got %d", result.TotalPenalty)
	}

	manager.Register(&MockConstraint{name: "fail", typ: Type("fail_type"), category: CategorySoft, penalty: 10})
	result = manager.Evaluate(newTestContext())
	if !result.IsValid {
		t.Error("软约束违反不影响有效性")
	}
	if len(result.SoftViolations) != 1 || result.TotalPenalty != 10 {
		t.Errorf("SoftViolations = %d, penalty = %d", len(result.SoftViolations), result.TotalPenalty)
	}
}

func TestManager_CanAssign(t *testing.T) {
	ctx := newTestContext()
	staff := ctx.Staff[0]

	manager := NewManager()
	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft})
	if ok, _ := manager.CanAssign(ctx, staff, 2, "D"); !ok {
		t.Error("只有软约束时应允许")
	}

	manager.Register(&MockConstraint{name: "hard", typ: Type("hard"), category: CategoryHard})
	ok, reason := manager.CanAssign(ctx, staff, 2, "D")
	if ok || reason == "" {
		t.Error("硬约束失败时应拒绝并给出原因")
	}

	manager.Unregister(Type("hard"))
	if ok, _ := manager.CanAssign(ctx, staff, 2, "D"); !ok {
		t.Error("注销后应允许")
	}
}

func TestStaffView_At(t *testing.T) {
	ctx := newTestContext()
	view := ctx.View(ctx.Staff[0])

	tests := []struct {
		day      int
		expected string
	}{
		{day: -1, expected: "D"},
		{day: 0, expected: "N"},
		{day: 1, expected: "D"},
		{day: 2, expected: model.CodeOff},
		{day: -2, expected: ""},
		{day: 32, expected: ""},
	}
	for _, tt := range tests {
		if got := view.At(tt.day); got != tt.expected {
			t.Errorf("At(%d) = %q, expected %q", tt.day, got, tt.expected)
		}
	}

	assumed := view.Assume(2, "E")
	if assumed.At(2) != "E" || view.At(2) != model.CodeOff {
		t.Error("Assume 不应修改原视图")
	}
	if view.FirstDay() != -1 || view.LastDay() != 31 {
		t.Errorf("FirstDay = %d, LastDay = %d", view.FirstDay(), view.LastDay())
	}
}

func TestManager_Clear(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "test", typ: Type("test"), category: CategoryHard})
	manager.Clear()

	if manager.Count() != 0 {
		t.Error("Expected 0 constraints after clear")
	}
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	weight   int
	pass     bool
	penalty  int
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Weight() int {
	if m.weight == 0 {
		return 100
	}
	return m.weight
}

func (m *MockConstraint) Evaluate(ctx *Context) (bool, int, []ViolationDetail) {
	if m.pass {
		return true, 0, nil
	}
	return false, m.penalty, []ViolationDetail{
		{ConstraintName: m.name, Message: "违反约束", Penalty: m.penalty},
	}
}

func (m *MockConstraint) EvaluateAssignment(ctx *Context, view StaffView, day int, code string) (bool, int) {
	return m.pass, m.penalty
}
