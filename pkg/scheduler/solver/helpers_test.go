package solver

import (
	"fmt"
	"time"

	"github.com/paiban/roster/pkg/model"
)

// 2026 年 3 月共 31 天，1 日为周日
const (
	testYear  = 2026
	testMonth = time.March
)

func testShifts() model.ShiftCatalog {
	return model.NewShiftCatalog([]*model.ShiftType{
		{Code: "D", Name: "白班", StartTime: "08:00", EndTime: "16:00", DurationMinutes: 480},
		{Code: "E", Name: "小夜", StartTime: "16:00", EndTime: "24:00", DurationMinutes: 480, IsEvening: true},
		{Code: "N", Name: "大夜", StartTime: "00:00", EndTime: "08:00", DurationMinutes: 480, IsNight: true},
	})
}

// newScenario 创建 n 名员工、每天 D/E/N 各 perShift 人的输入
func newScenario(n, perShift int) *model.Input {
	rules := model.DefaultRules()
	rules.Shifts = testShifts()
	rules.Demand.Base = map[string]int{"D": perShift, "E": perShift, "N": perShift}

	staff := make([]*model.Staff, n)
	for i := range staff {
		staff[i] = &model.Staff{UID: fmt.Sprintf("s%02d", i+1), Name: fmt.Sprintf("护理师%02d", i+1)}
	}
	return &model.Input{
		Year:  testYear,
		Month: testMonth,
		Staff: staff,
		Tail:  model.Tail{},
		Rules: rules,
	}
}

// countCoverage 统计每天每个班别的人数
func countCoverage(grid model.Grid) map[int]map[string]int {
	cov := make(map[int]map[string]int)
	for _, row := range grid {
		for day, code := range row {
			if !model.IsWorking(code) {
				continue
			}
			if cov[day] == nil {
				cov[day] = make(map[string]int)
			}
			cov[day][code]++
		}
	}
	return cov
}

// longestRun 返回含上月尾部的最长连续上班天数
func longestRun(tail []string, row map[int]string, days int) int {
	best, run := 0, 0
	step := func(code string) {
		if model.IsWorking(code) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	for _, code := range tail {
		step(code)
	}
	for day := 1; day <= days; day++ {
		step(row[day])
	}
	return best
}
