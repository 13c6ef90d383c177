// Package stats 提供排班统计分析功能
package stats

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// Gap 某天某班别的缺口
type Gap struct {
	Day      int    `json:"day"`
	Date     string `json:"date"`
	Shift    string `json:"shift"`
	Required int    `json:"required"`
	Assigned int    `json:"assigned"`
	Shortage int    `json:"shortage"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          int     `json:"day"`
	Date         string  `json:"date"`
	Required     int     `json:"required"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
	StaffCount   int     `json:"staff_count"` // 当天上班人数（含超配）
	TotalHours   float64 `json:"total_hours"`
}

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	Required        int     `json:"required"`         // 需求总人次
	Assigned        int     `json:"assigned"`         // 计入需求的已分配人次（超配不计）
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	ShiftTypeCoverage map[string]float64 `json:"shift_type_coverage"` // 按班别覆盖率
	Daily             []DayCoverage      `json:"daily"`

	GapCount int   `json:"gap_count"` // 缺口人次总和
	Gaps     []Gap `json:"gaps"`
}

// Coverage 对照需求统计排班表的覆盖情况
func Coverage(in *model.Input, grid model.Grid) *CoverageMetrics {
	days := in.DaysInMonth()
	shifts := in.Rules.Shifts.Types

	m := &CoverageMetrics{
		ShiftTypeCoverage: make(map[string]float64, len(shifts)),
		Daily:             make([]DayCoverage, 0, days),
	}

	// 逐日统计各班别上班人数
	typeRequired := make(map[string]int, len(shifts))
	typeAssigned := make(map[string]int, len(shifts))
	for day := 1; day <= days; day++ {
		date := in.Date(day)
		counts := make(map[string]int, len(shifts))
		dc := DayCoverage{Day: day, Date: date.Format(model.DateLayout)}
		for _, row := range grid {
			code := row[day]
			if !model.IsWorking(code) {
				continue
			}
			counts[code]++
			dc.StaffCount++
			if st := in.Rules.Shifts.Get(code); st != nil {
				dc.TotalHours += st.DurationHours()
			}
		}

		for _, st := range shifts {
			required := in.Rules.Demand.For(date, day, st)
			assigned := min(counts[st.Code], required)
			dc.Required += required
			dc.Assigned += assigned
			typeRequired[st.Code] += required
			typeAssigned[st.Code] += assigned
			if required > assigned {
				m.Gaps = append(m.Gaps, Gap{
					Day:      day,
					Date:     dc.Date,
					Shift:    st.Code,
					Required: required,
					Assigned: counts[st.Code],
					Shortage: required - assigned,
				})
				m.GapCount += required - assigned
			}
		}
		dc.CoverageRate = rate(dc.Assigned, dc.Required)
		m.Required += dc.Required
		m.Assigned += dc.Assigned
		m.Daily = append(m.Daily, dc)
	}

	for code, required := range typeRequired {
		m.ShiftTypeCoverage[code] = rate(typeAssigned[code], required)
	}
	m.OverallCoverage = rate(m.Assigned, m.Required)

	// 缺口大的在前，便于人工复核
	sort.SliceStable(m.Gaps, func(i, j int) bool {
		if m.Gaps[i].Shortage != m.Gaps[j].Shortage {
			return m.Gaps[i].Shortage > m.Gaps[j].Shortage
		}
		if m.Gaps[i].Day != m.Gaps[j].Day {
			return m.Gaps[i].Day < m.Gaps[j].Day
		}
		return m.Gaps[i].Shift < m.Gaps[j].Shift
	})
	return m
}

// rate 计算百分比，无需求时视为 100%
func rate(assigned, required int) float64 {
	if required == 0 {
		return 100
	}
	return float64(assigned) / float64(required) * 100
}
