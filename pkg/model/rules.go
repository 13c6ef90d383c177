package model

import "time"

// 需求缺省值
const (
	DefaultDayDemand   = 5
	DefaultOtherDemand = 2
)

// Demand 每日需求
type Demand struct {
	// Base 每天固定人数（班别 -> 人数）
	Base map[string]int `json:"base,omitempty" yaml:"base,omitempty"`
	// Weekly 按星期的需求（班别 -> 星期 -> 人数）
	Weekly map[string]map[time.Weekday]int `json:"weekly,omitempty" yaml:"weekly,omitempty"`
	// Overrides 指定日期覆盖（日序号 -> 班别 -> 人数）
	Overrides map[int]map[string]int `json:"overrides,omitempty" yaml:"overrides,omitempty"`

	DefaultDay   int `json:"default_day" yaml:"default_day"`
	DefaultOther int `json:"default_other" yaml:"default_other"`
}

// For 返回某天某班别的需求人数
// 优先级：日期覆盖 > 星期 > 固定 > 缺省
func (d *Demand) For(date time.Time, day int, shift *ShiftType) int {
	if n, ok := d.Overrides[day][shift.Code]; ok {
		return nonNegative(n)
	}
	if n, ok := d.Weekly[shift.Code][date.Weekday()]; ok {
		return nonNegative(n)
	}
	if n, ok := d.Base[shift.Code]; ok {
		return nonNegative(n)
	}
	if shift.Category() == CategoryDay {
		return d.DefaultDay
	}
	return d.DefaultOther
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Clone 深拷贝
func (d Demand) Clone() Demand {
	cp := Demand{DefaultDay: d.DefaultDay, DefaultOther: d.DefaultOther}
	if d.Base != nil {
		cp.Base = make(map[string]int, len(d.Base))
		for k, v := range d.Base {
			cp.Base[k] = v
		}
	}
	if d.Weekly != nil {
		cp.Weekly = make(map[string]map[time.Weekday]int, len(d.Weekly))
		for code, days := range d.Weekly {
			m := make(map[time.Weekday]int, len(days))
			for wd, n := range days {
				m[wd] = n
			}
			cp.Weekly[code] = m
		}
	}
	if d.Overrides != nil {
		cp.Overrides = make(map[int]map[string]int, len(d.Overrides))
		for day, codes := range d.Overrides {
			m := make(map[string]int, len(codes))
			for code, n := range codes {
				m[code] = n
			}
			cp.Overrides[day] = m
		}
	}
	return cp
}

// Rules 规则配置（硬约束与软策略参数）
type Rules struct {
	Shifts ShiftCatalog `json:"shifts" yaml:"shifts"`
	Demand Demand       `json:"demand" yaml:"demand"`

	// 硬约束
	MinRestHours         int `json:"min_rest_hours" yaml:"min_rest_hours"`
	MaxCategoriesPerWeek int `json:"max_categories_per_week" yaml:"max_categories_per_week"`
	MaxConsecutiveDays   int `json:"max_consecutive_days" yaml:"max_consecutive_days"`
	RestWindowDays       int `json:"rest_window_days" yaml:"rest_window_days"`
	MinRestPerWindow     int `json:"min_rest_per_window" yaml:"min_rest_per_window"`

	// 软策略
	Tolerance         int `json:"tolerance" yaml:"tolerance"`
	BacktrackDepth    int `json:"backtrack_depth" yaml:"backtrack_depth"`
	MaxRepairSteps    int `json:"max_repair_steps" yaml:"max_repair_steps"`
	MaxBalanceSwaps   int `json:"max_balance_swaps" yaml:"max_balance_swaps"`
	MaxPreferenceRank int `json:"max_preference_rank" yaml:"max_preference_rank"`
	FatigueRunDays    int `json:"fatigue_run_days" yaml:"fatigue_run_days"`

	// Weights 评分维度权重（fairness/satisfaction/fatigue/efficiency/cost）
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`

	// Holidays 当月节假日（日序号），瓶颈优先策略视为难排日
	Holidays []int `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	// SupportGroups 不受包班限制的组别
	SupportGroups []string `json:"support_groups,omitempty" yaml:"support_groups,omitempty"`

	// resolved 默认值已解析，其后字段中的 0 均为显式取值
	resolved bool
}

// DefaultRules 返回默认规则
func DefaultRules() Rules {
	r := Rules{}
	r.ApplyDefaults()
	return r
}

// ApplyDefaults 为零值字段填充默认值
// 对 DefaultRules 派生或已解析过的规则不做任何修改，显式配置的 0 得以保留
func (r *Rules) ApplyDefaults() {
	if r.resolved {
		return
	}
	setDefault(&r.MinRestHours, 11)
	setDefault(&r.MaxCategoriesPerWeek, 2)
	setDefault(&r.MaxConsecutiveDays, 6)
	setDefault(&r.RestWindowDays, 7)
	setDefault(&r.MinRestPerWindow, 1)
	setDefault(&r.BacktrackDepth, 3)
	setDefault(&r.MaxRepairSteps, 500)
	setDefault(&r.MaxBalanceSwaps, 200)
	setDefault(&r.MaxPreferenceRank, 3)
	setDefault(&r.FatigueRunDays, 6)
	setDefault(&r.Demand.DefaultDay, DefaultDayDemand)
	setDefault(&r.Demand.DefaultOther, DefaultOtherDemand)
	r.resolved = true
}

// Resolved 默认值是否已解析
func (r *Rules) Resolved() bool {
	return r.resolved
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// IsHoliday 检查是否为节假日
func (r *Rules) IsHoliday(day int) bool {
	for _, h := range r.Holidays {
		if h == day {
			return true
		}
	}
	return false
}

// IsSupportGroup 检查组别是否为支援组
func (r *Rules) IsSupportGroup(group string) bool {
	if group == "" {
		return false
	}
	for _, g := range r.SupportGroups {
		if g == group {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (r Rules) Clone() Rules {
	cp := r
	cp.Shifts = r.Shifts.Clone()
	cp.Demand = r.Demand.Clone()
	if r.Weights != nil {
		cp.Weights = make(map[string]float64, len(r.Weights))
		for k, v := range r.Weights {
			cp.Weights[k] = v
		}
	}
	cp.Holidays = append([]int(nil), r.Holidays...)
	cp.SupportGroups = append([]string(nil), r.SupportGroups...)
	return cp
}
