// Package constraints 排班规则目录（供前端展示与配置）
package constraints

import (
	"strconv"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"` // 对应规则配置中的字段
	Type        string `json:"type"` // int, list
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        constraint.Type     `json:"name"`
	DisplayName string              `json:"display_name"`
	Type        constraint.Category `json:"type"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Params      []ConstraintParam   `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
	Knobs   []ConstraintParam      `json:"knobs"`
}

// GetLibrary 返回排班引擎支持的全部约束，默认值取自默认规则
func GetLibrary() []ConstraintDefinition {
	def := model.DefaultRules()
	return []ConstraintDefinition{
		{
			Name:        constraint.TypeKnownShift,
			DisplayName: "班别合法",
			Type:        constraint.CategoryHard,
			Category:    "基础",
			Description: "格子只能是已定义的班别代码或休息代码。",
		},
		{
			Name:        constraint.TypeMinRestGap,
			DisplayName: "最小间隔休息",
			Type:        constraint.CategoryHard,
			Category:    "休息",
			Description: "前一班结束到后一班开始之间至少休息指定小时数，跨月时与上月末班别比较。",
			Params: []ConstraintParam{
				intParam("min_rest_hours", "最小间隔(小时)", def.MinRestHours, 8, 16),
			},
		},
		{
			Name:        constraint.TypeWeeklyCategoryCap,
			DisplayName: "每周班别种类上限",
			Type:        constraint.CategoryHard,
			Category:    "班别",
			Description: "同一自然周（周一至周日）内上班的班别类别（白/小夜/大夜）不超过上限。",
			Params: []ConstraintParam{
				intParam("max_categories_per_week", "类别上限", def.MaxCategoriesPerWeek, 1, 3),
			},
		},
		{
			Name:        constraint.TypeMaxConsecutiveDays,
			DisplayName: "最大连续上班天数",
			Type:        constraint.CategoryHard,
			Category:    "疲劳",
			Description: "连续上班天数不超过上限，上月末的连续上班计入。",
			Params: []ConstraintParam{
				intParam("max_consecutive_days", "最大天数", def.MaxConsecutiveDays, 3, 12),
			},
		},
		{
			Name:        constraint.TypeRestWindow,
			DisplayName: "窗口内最少休息",
			Type:        constraint.CategoryHard,
			Category:    "休息",
			Description: "任意连续窗口内至少休息指定天数。",
			Params: []ConstraintParam{
				intParam("rest_window_days", "窗口天数", def.RestWindowDays, 2, 14),
				intParam("min_rest_per_window", "最少休息天数", def.MinRestPerWindow, 1, 7),
			},
		},
		{
			Name:        constraint.TypeProtectedNight,
			DisplayName: "保护期禁夜班",
			Type:        constraint.CategoryHard,
			Category:    "保护",
			Description: "孕期或哺乳期在有效期内不得安排落入 22:00-06:00 的班次。",
		},
		{
			Name:        constraint.TypeStaffPreference,
			DisplayName: "个人志愿",
			Type:        constraint.CategorySoft,
			Category:    "满意度",
			Description: "尽量满足员工按顺位填报的班别志愿。",
			Params: []ConstraintParam{
				intParam("max_preference_rank", "考虑的最大顺位", def.MaxPreferenceRank, 1, 10),
			},
		},
	}
}

// GetKnobs 返回引擎调参项
func GetKnobs() []ConstraintParam {
	def := model.DefaultRules()
	return []ConstraintParam{
		intParam("tolerance", "每格允许的人数缺口", def.Tolerance, 0, 5),
		intParam("backtrack_depth", "回溯修复的最大前溯天数", def.BacktrackDepth, 1, 10),
		intParam("max_repair_steps", "回溯修复的步数预算", def.MaxRepairSteps, 0, 100000),
		intParam("max_balance_swaps", "均衡调整的交换预算", def.MaxBalanceSwaps, 0, 100000),
		intParam("fatigue_run_days", "视为疲劳的连续上班天数", def.FatigueRunDays, 2, 14),
		{Name: "holidays", Type: "list", Description: "当月节假日（日序号）"},
		{Name: "support_groups", Type: "list", Description: "不受包班限制的组别"},
	}
}

func intParam(name, desc string, def, lo, hi int) ConstraintParam {
	return ConstraintParam{
		Name:        name,
		Type:        "int",
		Description: desc,
		Default:     strconv.Itoa(def),
		Min:         strconv.Itoa(lo),
		Max:         strconv.Itoa(hi),
	}
}
