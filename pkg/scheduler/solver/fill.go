package solver

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// Comparator 候选排序，返回 true 表示 a 优先
type Comparator func(c *Context, day int, code string, a, b *model.Staff) bool

// ComparatorTable 按班别类别选择比较器
type ComparatorTable map[model.ShiftCategory]Comparator

// For 返回班别对应的比较器，缺省按休息天数
func (t ComparatorTable) For(c *Context, code string) Comparator {
	if shift := c.Rules().Shifts.Get(code); shift != nil {
		if cmp, ok := t[shift.Category()]; ok {
			return cmp
		}
	}
	return byMostOff
}

// byMostOff 休息天数多者优先
func byMostOff(c *Context, _ int, _ string, a, b *model.Staff) bool {
	return c.Counters(a.UID).Off > c.Counters(b.UID).Off
}

// byFewestOfCode 该班别次数少者优先，其次休息天数多者优先
func byFewestOfCode(c *Context, day int, code string, a, b *model.Staff) bool {
	na, nb := c.Counters(a.UID).Count(code), c.Counters(b.UID).Count(code)
	if na != nb {
		return na < nb
	}
	return byMostOff(c, day, code, a, b)
}

// byStrictCount 该班别次数少者优先；次数相等时本周已有同类班别者优先，再比较 uid
func byStrictCount(c *Context, day int, code string, a, b *model.Staff) bool {
	na, nb := c.Counters(a.UID).Count(code), c.Counters(b.UID).Count(code)
	if na != nb {
		return na < nb
	}
	return c.weekHasCategory(a, day, code) && !c.weekHasCategory(b, day, code)
}

// weekHasCategory 员工在 day 所在周（周一开始，限当月）是否已排与 code 同类的班
func (c *Context) weekHasCategory(s *model.Staff, day int, code string) bool {
	target := c.Rules().Shifts.Get(code)
	if target == nil {
		return false
	}
	start := day - (int(c.Date(day).Weekday())+6)%7
	for d := max(start, 1); d < start+7 && d <= c.Days(); d++ {
		if d == day {
			continue
		}
		if shift := c.Rules().Shifts.Get(c.Cell(s.UID, d)); shift != nil && shift.Category() == target.Category() {
			return true
		}
	}
	return false
}

// byOverflowFirst 包班溢出人员优先，其次休息天数多者优先
func byOverflowFirst(c *Context, day int, code string, a, b *model.Staff) bool {
	oa, ob := isOverflow(c, a, code), isOverflow(c, b, code)
	if oa != ob {
		return oa
	}
	return byMostOff(c, day, code, a, b)
}

// isOverflow 员工有包班且包班不属于目标班别类别
func isOverflow(c *Context, s *model.Staff, code string) bool {
	if s.Package == "" || s.Package == code {
		return false
	}
	pkg, target := c.Rules().Shifts.Get(s.Package), c.Rules().Shifts.Get(code)
	return pkg != nil && target != nil && pkg.Category() != target.Category()
}

// candidates 返回当天可排 code 的员工，已排序，有休息意愿者排在最后
func (c *Context) candidates(day int, code string, cmp Comparator) []*model.Staff {
	var ready, reluctant []*model.Staff
	for _, s := range c.staff {
		if c.Cell(s.UID, day) != model.CodeOff {
			continue
		}
		if !c.Eligible(s, day, code) || !c.IsValidContinuity(s, day, code) {
			continue
		}
		if s.WantsRest(day) {
			reluctant = append(reluctant, s)
		} else {
			ready = append(ready, s)
		}
	}

	rank := func(list []*model.Staff) {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if cmp(c, day, code, a, b) {
				return true
			}
			if cmp(c, day, code, b, a) {
				return false
			}
			return a.UID < b.UID
		})
	}
	rank(ready)
	rank(reluctant)
	return append(ready, reluctant...)
}

// fillGap 用排序后的候选补齐 (day, code) 缺口，返回补入人数
func (c *Context) fillGap(day int, code string, cmp Comparator) int {
	need := c.Gap(day, code)
	if need == 0 {
		return 0
	}
	filled := 0
	for _, s := range c.candidates(day, code, cmp) {
		if filled == need {
			break
		}
		if err := c.UpdateShift(day, s.UID, model.CodeOff, code); err != nil {
			continue
		}
		filled++
	}
	return filled
}

// tryAssign 校验后把休息中的员工排为 code
func (c *Context) tryAssign(s *model.Staff, day int, code string) bool {
	if c.Cell(s.UID, day) != model.CodeOff || c.Gap(day, code) == 0 {
		return false
	}
	if !c.Eligible(s, day, code) || !c.IsValidContinuity(s, day, code) {
		return false
	}
	return c.UpdateShift(day, s.UID, model.CodeOff, code) == nil
}

// preferenceFill 先按志愿顺位，再按包班承诺填充
func (c *Context) preferenceFill(days []int, codes []string) {
	wanted := make(map[string]bool, len(codes))
	for _, code := range codes {
		wanted[code] = true
	}

	for rank := 1; rank <= c.Rules().MaxPreferenceRank; rank++ {
		for _, day := range days {
			for _, s := range c.staff {
				code, ok := s.PreferenceAt(day, rank)
				if !ok || !wanted[code] {
					continue
				}
				// 更高志愿为休息时不再考虑低志愿
				if rank > 1 && prefersRestBefore(s, day, rank) {
					continue
				}
				c.tryAssign(s, day, code)
			}
		}
	}

	for _, day := range days {
		for _, code := range codes {
			if c.Gap(day, code) == 0 {
				continue
			}
			for _, s := range c.packageHolders(code) {
				if c.Gap(day, code) == 0 {
					break
				}
				if s.WantsRest(day) {
					continue
				}
				c.tryAssign(s, day, code)
			}
		}
	}
}

func prefersRestBefore(s *model.Staff, day, rank int) bool {
	for r := 1; r < rank; r++ {
		if code, ok := s.PreferenceAt(day, r); ok && model.IsRest(code) {
			return true
		}
	}
	return false
}

// packageHolders 返回包班为 code 的员工，休息多者优先
func (c *Context) packageHolders(code string) []*model.Staff {
	var holders []*model.Staff
	for _, s := range c.staff {
		if s.Package == code {
			holders = append(holders, s)
		}
	}
	sort.SliceStable(holders, func(i, j int) bool {
		oi, oj := c.Counters(holders[i].UID).Off, c.Counters(holders[j].UID).Off
		if oi != oj {
			return oi > oj
		}
		return holders[i].UID < holders[j].UID
	})
	return holders
}

// gapsBySize 返回给定日期与班别中的缺口，按大小降序，其次日期、目录顺序
func (c *Context) gapsBySize(days []int, codes []string) []gapCell {
	var gaps []gapCell
	for _, day := range days {
		for i, code := range codes {
			if g := c.Gap(day, code); g > 0 {
				gaps = append(gaps, gapCell{day: day, code: code, size: g, order: i})
			}
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].size != gaps[j].size {
			return gaps[i].size > gaps[j].size
		}
		if gaps[i].day != gaps[j].day {
			return gaps[i].day < gaps[j].day
		}
		return gaps[i].order < gaps[j].order
	})
	return gaps
}

type gapCell struct {
	day   int
	code  string
	size  int
	order int
}

// allDays 返回 1..days
func (c *Context) allDays() []int {
	days := make([]int, c.days)
	for i := range days {
		days[i] = i + 1
	}
	return days
}

// codesByCategories 按类别顺序展开班别代码
func (c *Context) codesByCategories(cats ...model.ShiftCategory) []string {
	var codes []string
	for _, cat := range cats {
		codes = append(codes, c.Rules().Shifts.ByCategory(cat)...)
	}
	return codes
}
