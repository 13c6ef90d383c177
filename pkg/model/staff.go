package model

import "time"

// Staff 排班人员
type Staff struct {
	UID     string `json:"uid" yaml:"uid"`
	Name    string `json:"name" yaml:"name"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"` // 包班班别代码，空表示无包班
	Group   string `json:"group,omitempty" yaml:"group,omitempty"`
	Support bool   `json:"support,omitempty" yaml:"support,omitempty"` // 支援人员不受包班限制

	// 保护性身份，到期日为零值表示长期有效
	Pregnant           bool      `json:"pregnant,omitempty" yaml:"pregnant,omitempty"`
	PregnantUntil      time.Time `json:"pregnant_until,omitempty" yaml:"pregnant_until,omitempty"`
	Breastfeeding      bool      `json:"breastfeeding,omitempty" yaml:"breastfeeding,omitempty"`
	BreastfeedingUntil time.Time `json:"breastfeeding_until,omitempty" yaml:"breastfeeding_until,omitempty"`

	// Preferences 按日期的志愿班别，下标 0 为第一志愿
	Preferences map[int][]string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	// RequestedOff 预约休息日（当月日序号）
	RequestedOff []int `json:"requested_off,omitempty" yaml:"requested_off,omitempty"`
}

// PreferenceAt 返回某天第 rank 志愿（rank 从 1 开始）
func (s *Staff) PreferenceAt(day, rank int) (string, bool) {
	prefs := s.Preferences[day]
	if rank < 1 || rank > len(prefs) || prefs[rank-1] == "" {
		return "", false
	}
	return prefs[rank-1], true
}

// ProtectedOn 检查某日是否处于孕期或哺乳期保护
func (s *Staff) ProtectedOn(date time.Time) bool {
	if s.Pregnant && activeOn(s.PregnantUntil, date) {
		return true
	}
	return s.Breastfeeding && activeOn(s.BreastfeedingUntil, date)
}

func activeOn(until, date time.Time) bool {
	return until.IsZero() || !until.Before(date)
}

// WantsRest 检查当天是否有休息意愿（预约休息或志愿为休息）
func (s *Staff) WantsRest(day int) bool {
	if s.IsRequestedOff(day) {
		return true
	}
	for _, code := range s.Preferences[day] {
		if IsRest(code) {
			return true
		}
	}
	return false
}

// PinnedOff 检查当天是否固定为预约休息（预约日或第一志愿为 REQ_OFF）
func (s *Staff) PinnedOff(day int) bool {
	if s.IsRequestedOff(day) {
		return true
	}
	first, ok := s.PreferenceAt(day, 1)
	return ok && first == CodeReqOff
}

// IsRequestedOff 检查是否为预约休息日
func (s *Staff) IsRequestedOff(day int) bool {
	for _, d := range s.RequestedOff {
		if d == day {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (s *Staff) Clone() *Staff {
	cp := *s
	if s.Preferences != nil {
		cp.Preferences = make(map[int][]string, len(s.Preferences))
		for day, prefs := range s.Preferences {
			cp.Preferences[day] = append([]string(nil), prefs...)
		}
	}
	if s.RequestedOff != nil {
		cp.RequestedOff = append([]int(nil), s.RequestedOff...)
	}
	return &cp
}
