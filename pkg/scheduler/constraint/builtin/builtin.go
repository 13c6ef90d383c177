// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// 默认志愿权重
const defaultPreferenceWeight = 50

// RegisterRosterConstraints 按规则注册排班硬约束与志愿软约束
func RegisterRosterConstraints(manager *constraint.Manager, rules *model.Rules) {
	manager.Register(NewKnownShiftConstraint())
	manager.Register(NewMinRestGapConstraint(rules.MinRestHours))
	manager.Register(NewWeeklyCategoryCapConstraint(rules.MaxCategoriesPerWeek))
	manager.Register(NewMaxConsecutiveDaysConstraint(rules.MaxConsecutiveDays))
	manager.Register(NewRestWindowConstraint(rules.RestWindowDays, rules.MinRestPerWindow))
	manager.Register(NewProtectedNightConstraint())

	manager.Register(NewStaffPreferenceConstraint(defaultPreferenceWeight))
}

// NewRosterManager 创建已注册全部排班约束的管理器
func NewRosterManager(rules *model.Rules) *constraint.Manager {
	manager := constraint.NewManager()
	RegisterRosterConstraints(manager, rules)
	return manager
}
