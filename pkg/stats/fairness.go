package stats

import (
	"math"
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 休息天数分布
	OffMean   float64 `json:"off_mean"`
	OffStdDev float64 `json:"off_std_dev"` // 评分依据
	OffGini   float64 `json:"off_gini"`    // 0=完全公平, 1=完全不公平
	MaxOff    int     `json:"max_off"`
	MinOff    int     `json:"min_off"`

	// 工时与夜班、周末班分布
	AvgHoursPerStaff float64 `json:"avg_hours_per_staff"`
	WorkloadGini     float64 `json:"workload_gini"`
	NightShiftGini   float64 `json:"night_shift_gini"`
	WeekendShiftGini float64 `json:"weekend_shift_gini"`

	StaffStats []StaffStat `json:"staff_stats"`
}

// StaffStat 员工统计
type StaffStat struct {
	UID           string  `json:"uid"`
	Name          string  `json:"name"`
	OffDays       int     `json:"off_days"`
	WorkDays      int     `json:"work_days"`
	TotalHours    float64 `json:"total_hours"`
	NightShifts   int     `json:"night_shifts"`
	WeekendShifts int     `json:"weekend_shifts"`
	LongestRun    int     `json:"longest_run"` // 含上月末尾的最长连续上班天数
	Deviation     float64 `json:"deviation"`   // 休息天数与平均值的偏差
}

// Fairness 分析排班表中休息与负荷的分布
func Fairness(in *model.Input, grid model.Grid) *FairnessMetrics {
	m := &FairnessMetrics{}
	if len(in.Staff) == 0 {
		return m
	}

	days := in.DaysInMonth()
	m.StaffStats = make([]StaffStat, 0, len(in.Staff))
	for _, s := range in.Staff {
		stat := StaffStat{UID: s.UID, Name: s.Name}
		row := grid[s.UID]
		for day := 1; day <= days; day++ {
			code := row[day]
			if model.IsRest(code) {
				stat.OffDays++
				continue
			}
			st := in.Rules.Shifts.Get(code)
			if st == nil {
				continue
			}
			stat.WorkDays++
			stat.TotalHours += st.DurationHours()
			if st.IsNightTime() {
				stat.NightShifts++
			}
			if model.IsWeekend(in.Date(day)) {
				stat.WeekendShifts++
			}
		}
		stat.LongestRun = longestRun(in.Tail[s.UID], row, days)
		m.StaffStats = append(m.StaffStats, stat)
	}

	n := len(m.StaffStats)
	offs := make([]float64, n)
	hours := make([]float64, n)
	nights := make([]float64, n)
	weekends := make([]float64, n)
	for i, st := range m.StaffStats {
		offs[i] = float64(st.OffDays)
		hours[i] = st.TotalHours
		nights[i] = float64(st.NightShifts)
		weekends[i] = float64(st.WeekendShifts)
	}

	m.OffMean = mean(offs)
	m.OffStdDev = math.Sqrt(variance(offs, m.OffMean))
	m.OffGini = gini(offs)
	maxOff, minOff := valueRange(offs)
	m.MaxOff, m.MinOff = int(maxOff), int(minOff)
	m.AvgHoursPerStaff = mean(hours)
	m.WorkloadGini = gini(hours)
	m.NightShiftGini = gini(nights)
	m.WeekendShiftGini = gini(weekends)

	for i := range m.StaffStats {
		m.StaffStats[i].Deviation = float64(m.StaffStats[i].OffDays) - m.OffMean
	}
	sort.SliceStable(m.StaffStats, func(i, j int) bool {
		return m.StaffStats[i].UID < m.StaffStats[j].UID
	})
	return m
}

// longestRun 计算最长连续上班天数，上月末尾的连续上班计入本月开头
func longestRun(tail []string, row map[int]string, days int) int {
	run := 0
	for i := len(tail) - 1; i >= 0 && model.IsWorking(tail[i]); i-- {
		run++
	}
	best := run
	for day := 1; day <= days; day++ {
		if model.IsWorking(row[day]) {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 计算总体方差
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// valueRange 计算极值
func valueRange(values []float64) (hi, lo float64) {
	if len(values) == 0 {
		return 0, 0
	}
	hi, lo = values[0], values[0]
	for _, v := range values[1:] {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
