// Package model 定义排班引擎的核心数据模型
package model

// 休息哨兵值
const (
	CodeOff    = "OFF"     // 系统安排的休息
	CodeReqOff = "REQ_OFF" // 员工预约的休息（固定，不可覆盖）
)

// 夜间时段（22:00-06:00），用于保护性身份的夜班禁令
const (
	nightWindowStart = 22 * 60
	nightWindowEnd   = 6 * 60
)

// ShiftCategory 班别类别
type ShiftCategory int

const (
	CategoryDay     ShiftCategory = iota // 白班
	CategoryEvening                      // 小夜班
	CategoryNight                        // 大夜班
)

// String 返回类别名称
func (c ShiftCategory) String() string {
	switch c {
	case CategoryDay:
		return "day"
	case CategoryEvening:
		return "evening"
	case CategoryNight:
		return "night"
	default:
		return "unknown"
	}
}

// ShiftType 班别定义
type ShiftType struct {
	Code            string `json:"code" yaml:"code"`
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	StartTime       string `json:"start_time" yaml:"start_time"` // HH:MM
	EndTime         string `json:"end_time" yaml:"end_time"`     // HH:MM
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
	IsNight         bool   `json:"is_night" yaml:"is_night"`
	IsEvening       bool   `json:"is_evening" yaml:"is_evening"`
}

// Category 返回班别类别
func (s *ShiftType) Category() ShiftCategory {
	switch {
	case s.IsNight:
		return CategoryNight
	case s.IsEvening:
		return CategoryEvening
	default:
		return CategoryDay
	}
}

// Prepare 校验起止时间并补全时长
func (s *ShiftType) Prepare() error {
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return err
	}
	if s.DurationMinutes <= 0 {
		if end <= start {
			end += MinutesPerDay
		}
		s.DurationMinutes = end - start
	}
	return nil
}

// StartMinute 返回当天零点起的开始分钟
func (s *ShiftType) StartMinute() int {
	start, _ := ParseClock(s.StartTime)
	return start
}

// EndMinute 返回当天零点起的结束分钟（跨日时大于 1440）
func (s *ShiftType) EndMinute() int {
	return s.StartMinute() + s.duration()
}

// duration 返回时长（分钟），未设置时由起止时间推算
func (s *ShiftType) duration() int {
	if s.DurationMinutes > 0 {
		return s.DurationMinutes
	}
	start := s.StartMinute()
	end, _ := ParseClock(s.EndTime)
	if end <= start {
		end += MinutesPerDay
	}
	return end - start
}

// DurationHours 返回班次时长（小时）
func (s *ShiftType) DurationHours() float64 {
	return float64(s.duration()) / 60.0
}

// IsNightTime 检查班次是否落入 22:00-06:00 夜间时段
func (s *ShiftType) IsNightTime() bool {
	if s.IsNight {
		return true
	}
	start, end := s.StartMinute(), s.EndMinute()
	// 以两天为窗口逐段比较夜间区间
	for base := -MinutesPerDay; base <= MinutesPerDay; base += MinutesPerDay {
		ws := base + nightWindowStart
		we := base + MinutesPerDay + nightWindowEnd
		if start < we && ws < end {
			return true
		}
	}
	return false
}

// ShiftCatalog 班别目录（保持输入顺序）
type ShiftCatalog struct {
	Types []*ShiftType `json:"types" yaml:"types"`
	index map[string]*ShiftType
}

// NewShiftCatalog 创建班别目录
func NewShiftCatalog(types []*ShiftType) ShiftCatalog {
	c := ShiftCatalog{Types: types}
	c.reindex()
	return c
}

func (c *ShiftCatalog) reindex() {
	c.index = make(map[string]*ShiftType, len(c.Types))
	for _, t := range c.Types {
		c.index[t.Code] = t
	}
}

// Get 按代码获取班别
func (c *ShiftCatalog) Get(code string) *ShiftType {
	if c.index == nil {
		c.reindex()
	}
	return c.index[code]
}

// Codes 返回所有班别代码
func (c *ShiftCatalog) Codes() []string {
	codes := make([]string, 0, len(c.Types))
	for _, t := range c.Types {
		codes = append(codes, t.Code)
	}
	return codes
}

// ByCategory 返回某类别下的班别代码
func (c *ShiftCatalog) ByCategory(cat ShiftCategory) []string {
	var codes []string
	for _, t := range c.Types {
		if t.Category() == cat {
			codes = append(codes, t.Code)
		}
	}
	return codes
}

// Clone 深拷贝
func (c ShiftCatalog) Clone() ShiftCatalog {
	types := make([]*ShiftType, len(c.Types))
	for i, t := range c.Types {
		cp := *t
		types[i] = &cp
	}
	return NewShiftCatalog(types)
}

// IsRest 检查是否为休息代码
func IsRest(code string) bool {
	return code == CodeOff || code == CodeReqOff
}

// IsWorking 检查是否为上班代码
func IsWorking(code string) bool {
	return code != "" && !IsRest(code)
}
