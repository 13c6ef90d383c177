package optimizer

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// 触发均衡的休息天数差
const minOffSpread = 2

// BalanceResult 均衡结果
type BalanceResult struct {
	Swaps    int `json:"swaps"`
	Rejected int `json:"rejected"`
}

// Balance 在过劳与过闲的员工之间转移白班以缩小休息天数差
// 每次转移后重新校验双方整行，违反硬约束则回滚并尝试下一对
func Balance(b Board, maxSwaps int) BalanceResult {
	var res BalanceResult
	dayCodes := make(map[string]bool)
	for _, code := range b.Rules().Shifts.ByCategory(model.CategoryDay) {
		dayCodes[code] = true
	}
	if len(dayCodes) == 0 {
		return res
	}

	for res.Swaps < maxSwaps {
		if !balanceOnce(b, dayCodes, &res) {
			break
		}
		res.Swaps++
	}
	return res
}

// balanceOnce 找到并执行一次转移
func balanceOnce(b Board, dayCodes map[string]bool, res *BalanceResult) bool {
	staff := append([]*model.Staff(nil), b.Staff()...)
	off := func(s *model.Staff) int { return b.Counters(s.UID).Off }

	// 休息最少（最累）在前
	sort.SliceStable(staff, func(i, j int) bool {
		if off(staff[i]) != off(staff[j]) {
			return off(staff[i]) < off(staff[j])
		}
		return staff[i].UID < staff[j].UID
	})

	for i, worked := range staff {
		for k := len(staff) - 1; k > i; k-- {
			rested := staff[k]
			if off(rested)-off(worked) < minOffSpread {
				break
			}
			if transferDayShift(b, worked, rested, dayCodes, res) {
				return true
			}
		}
	}
	return false
}

// transferDayShift 把 worked 的一个白班转给当天休息的 rested
// rested 有休息意愿的日期不接收转移
func transferDayShift(b Board, worked, rested *model.Staff, dayCodes map[string]bool, res *BalanceResult) bool {
	for day := 1; day <= b.Days(); day++ {
		code := b.Cell(worked.UID, day)
		if !dayCodes[code] || b.Cell(rested.UID, day) != model.CodeOff || rested.WantsRest(day) {
			continue
		}
		if !b.Eligible(rested, day, code) || !b.IsValidContinuity(rested, day, code) {
			continue
		}

		j := newJournal(b)
		if err := j.apply(day, worked.UID, code, model.CodeOff); err != nil {
			continue
		}
		if err := j.apply(day, rested.UID, model.CodeOff, code); err != nil {
			j.rollback()
			continue
		}
		if !b.RowValid(worked) || !b.RowValid(rested) {
			j.rollback()
			res.Rejected++
			continue
		}
		j.commit()
		return true
	}
	return false
}
