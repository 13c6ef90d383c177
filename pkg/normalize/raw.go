// Package normalize 将原始记录规范化为排班引擎的输入
package normalize

// RawInput 原始排班输入（来自 YAML/JSON 文档或存储层）
type RawInput struct {
	Year   int                 `json:"year" yaml:"year" validate:"required,min=2000,max=2100"`
	Month  int                 `json:"month" yaml:"month" validate:"required,min=1,max=12"`
	Shifts []RawShift          `json:"shifts" yaml:"shifts" validate:"required,min=1,dive"`
	Staff  []RawStaff          `json:"staff" yaml:"staff" validate:"required,min=1,dive"`
	Demand RawDemand           `json:"demand" yaml:"demand"`
	Rules  RawRules            `json:"rules" yaml:"rules"`
	Tail   map[string][]string `json:"tail,omitempty" yaml:"tail,omitempty"`
}

// RawShift 原始班别记录
type RawShift struct {
	Code     string `json:"code" yaml:"code" validate:"required,max=16"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Start    string `json:"start" yaml:"start" validate:"required,clock"`
	End      string `json:"end" yaml:"end" validate:"required,clock"`
	Duration int    `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty" validate:"min=0,max=1440"`
	Night    bool   `json:"night,omitempty" yaml:"night,omitempty"`
	Evening  bool   `json:"evening,omitempty" yaml:"evening,omitempty"`
}

// RawStaff 原始员工记录
type RawStaff struct {
	UID                string           `json:"uid" yaml:"uid" validate:"required"`
	Name               string           `json:"name" yaml:"name" validate:"required"`
	Package            string           `json:"package,omitempty" yaml:"package,omitempty"`
	Group              string           `json:"group,omitempty" yaml:"group,omitempty"`
	Support            bool             `json:"support,omitempty" yaml:"support,omitempty"`
	Pregnant           bool             `json:"pregnant,omitempty" yaml:"pregnant,omitempty"`
	PregnantUntil      string           `json:"pregnant_until,omitempty" yaml:"pregnant_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Breastfeeding      bool             `json:"breastfeeding,omitempty" yaml:"breastfeeding,omitempty"`
	BreastfeedingUntil string           `json:"breastfeeding_until,omitempty" yaml:"breastfeeding_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Preferences        map[int][]string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	RequestedOff       []int            `json:"requested_off,omitempty" yaml:"requested_off,omitempty" validate:"dive,min=1,max=31"`
}

// RawDemand 原始需求配置
type RawDemand struct {
	Base         map[string]int            `json:"base,omitempty" yaml:"base,omitempty" validate:"dive,min=0"`
	Weekly       map[string]map[string]int `json:"weekly,omitempty" yaml:"weekly,omitempty"` // 班别 -> 星期(mon..sun) -> 人数
	Overrides    []RawOverride             `json:"overrides,omitempty" yaml:"overrides,omitempty" validate:"dive"`
	DefaultDay   *int                      `json:"default_day,omitempty" yaml:"default_day,omitempty" validate:"omitempty,min=0"`
	DefaultOther *int                      `json:"default_other,omitempty" yaml:"default_other,omitempty" validate:"omitempty,min=0"`
}

// RawOverride 需求覆盖：指定日期或 RRULE 规则，二者必填其一
type RawOverride struct {
	Day   int    `json:"day,omitempty" yaml:"day,omitempty" validate:"min=0,max=31"`
	RRule string `json:"rrule,omitempty" yaml:"rrule,omitempty"`
	Shift string `json:"shift" yaml:"shift" validate:"required"`
	Count int    `json:"count" yaml:"count" validate:"min=0"`
}

// RawRules 原始规则参数，未填写的字段取默认值，显式的 0 保留
type RawRules struct {
	MinRestHours         *int               `json:"min_rest_hours,omitempty" yaml:"min_rest_hours,omitempty" validate:"omitempty,min=0,max=24"`
	MaxCategoriesPerWeek *int               `json:"max_categories_per_week,omitempty" yaml:"max_categories_per_week,omitempty" validate:"omitempty,min=1"`
	MaxConsecutiveDays   *int               `json:"max_consecutive_days,omitempty" yaml:"max_consecutive_days,omitempty" validate:"omitempty,min=1"`
	RestWindowDays       *int               `json:"rest_window_days,omitempty" yaml:"rest_window_days,omitempty" validate:"omitempty,min=1"`
	MinRestPerWindow     *int               `json:"min_rest_per_window,omitempty" yaml:"min_rest_per_window,omitempty" validate:"omitempty,min=0"`
	Tolerance            *int               `json:"tolerance,omitempty" yaml:"tolerance,omitempty" validate:"omitempty,min=0"`
	BacktrackDepth       *int               `json:"backtrack_depth,omitempty" yaml:"backtrack_depth,omitempty" validate:"omitempty,min=0"`
	MaxRepairSteps       *int               `json:"max_repair_steps,omitempty" yaml:"max_repair_steps,omitempty" validate:"omitempty,min=0"`
	MaxBalanceSwaps      *int               `json:"max_balance_swaps,omitempty" yaml:"max_balance_swaps,omitempty" validate:"omitempty,min=0"`
	MaxPreferenceRank    *int               `json:"max_preference_rank,omitempty" yaml:"max_preference_rank,omitempty" validate:"omitempty,min=1"`
	FatigueRunDays       *int               `json:"fatigue_run_days,omitempty" yaml:"fatigue_run_days,omitempty" validate:"omitempty,min=1"`
	Weights              map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty" validate:"dive,keys,oneof=fairness satisfaction fatigue efficiency cost,endkeys,min=0"`
	Holidays             []int              `json:"holidays,omitempty" yaml:"holidays,omitempty" validate:"dive,min=1,max=31"`
	SupportGroups        []string           `json:"support_groups,omitempty" yaml:"support_groups,omitempty"`
}
