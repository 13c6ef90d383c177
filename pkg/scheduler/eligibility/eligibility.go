// Package eligibility 判定员工能否结构性地承担某类班别（包班白名单）
package eligibility

import (
	"github.com/paiban/roster/pkg/model"
)

// Policy 跨类别借调策略
type Policy int

const (
	// PolicyStrict 大夜/小夜包班互相禁排
	PolicyStrict Policy = iota
	// PolicyPermissive 大夜包班可借调到小夜班，反向仍禁止
	PolicyPermissive
)

// String 返回策略名称
func (p Policy) String() string {
	if p == PolicyPermissive {
		return "permissive"
	}
	return "strict"
}

// Remaining 返回某天某班别剩余的需求缺口
type Remaining func(day int, code string) int

// rule 规则：包班类别 -> 目标类别 -> 判定
type rule func(r *Resolver, s *model.Staff, day int, target *model.ShiftType, remaining Remaining) bool

func always(*Resolver, *model.Staff, int, *model.ShiftType, Remaining) bool { return true }

func never(*Resolver, *model.Staff, int, *model.ShiftType, Remaining) bool { return false }

// packageOverflow 包班班别当天无剩余需求时溢出到目标班别
func packageOverflow(_ *Resolver, s *model.Staff, day int, _ *model.ShiftType, remaining Remaining) bool {
	return remaining(day, s.Package) == 0
}

// dayOverflow 白班包班在白班无剩余需求时才可支援夜间
func dayOverflow(r *Resolver, _ *model.Staff, day int, _ *model.ShiftType, remaining Remaining) bool {
	for _, code := range r.shifts.ByCategory(model.CategoryDay) {
		if remaining(day, code) > 0 {
			return false
		}
	}
	return true
}

// tables 各策略的规则表
var tables = map[Policy]map[model.ShiftCategory]map[model.ShiftCategory]rule{
	PolicyStrict: {
		model.CategoryDay:     {model.CategoryDay: always, model.CategoryEvening: dayOverflow, model.CategoryNight: dayOverflow},
		model.CategoryEvening: {model.CategoryDay: packageOverflow, model.CategoryEvening: always, model.CategoryNight: never},
		model.CategoryNight:   {model.CategoryDay: packageOverflow, model.CategoryEvening: never, model.CategoryNight: always},
	},
	PolicyPermissive: {
		model.CategoryDay:     {model.CategoryDay: always, model.CategoryEvening: dayOverflow, model.CategoryNight: dayOverflow},
		model.CategoryEvening: {model.CategoryDay: packageOverflow, model.CategoryEvening: always, model.CategoryNight: never},
		model.CategoryNight:   {model.CategoryDay: packageOverflow, model.CategoryEvening: always, model.CategoryNight: always},
	},
}

// Resolver 包班白名单判定器
type Resolver struct {
	policy Policy
	rules  *model.Rules
	shifts *model.ShiftCatalog
}

// NewResolver 创建判定器
func NewResolver(policy Policy, rules *model.Rules) *Resolver {
	return &Resolver{policy: policy, rules: rules, shifts: &rules.Shifts}
}

// Allowed 判定员工第 day 天能否承担 code
// 与日期相关的硬约束不在此检查
func (r *Resolver) Allowed(s *model.Staff, day int, code string, remaining Remaining) bool {
	target := r.shifts.Get(code)
	if target == nil {
		return false
	}
	if s.Package == "" || s.Support || r.rules.IsSupportGroup(s.Group) {
		return true
	}
	if s.Package == code {
		return true
	}
	pkg := r.shifts.Get(s.Package)
	if pkg == nil {
		// 包班代码不在目录中按无包班处理
		return true
	}
	return tables[r.policy][pkg.Category()][target.Category()](r, s, day, target, remaining)
}
