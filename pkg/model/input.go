package model

import "time"

// Input 一次排班运行的输入快照
type Input struct {
	Year  int        `json:"year" yaml:"year"`
	Month time.Month `json:"month" yaml:"month"`
	Staff []*Staff   `json:"staff" yaml:"staff"`
	Tail  Tail       `json:"tail,omitempty" yaml:"tail,omitempty"`
	Rules Rules      `json:"rules" yaml:"rules"`
}

// DaysInMonth 返回当月天数
func (in *Input) DaysInMonth() int {
	return DaysIn(in.Year, in.Month)
}

// Date 返回当月第 day 天的日期
func (in *Input) Date(day int) time.Time {
	return DateOf(in.Year, in.Month, day)
}

// StaffByUID 按 uid 查找员工
func (in *Input) StaffByUID(uid string) *Staff {
	for _, s := range in.Staff {
		if s.UID == uid {
			return s
		}
	}
	return nil
}

// Clone 结构化深拷贝，运行之间不共享任何可变状态
func (in *Input) Clone() *Input {
	cp := &Input{
		Year:  in.Year,
		Month: in.Month,
		Tail:  in.Tail.Clone(),
		Rules: in.Rules.Clone(),
	}
	cp.Staff = make([]*Staff, len(in.Staff))
	for i, s := range in.Staff {
		cp.Staff[i] = s.Clone()
	}
	return cp
}
