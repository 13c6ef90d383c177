package stats

import (
	"github.com/paiban/roster/pkg/model"
)

// Category 评分维度
type Category string

const (
	CategoryFairness     Category = "fairness"
	CategorySatisfaction Category = "satisfaction"
	CategoryFatigue      Category = "fatigue"
	CategoryEfficiency   Category = "efficiency"
	CategoryCost         Category = "cost"
)

// MaxScore 单维度满分
const MaxScore = 5

// Categories 返回全部评分维度（固定顺序）
func Categories() []Category {
	return []Category{CategoryFairness, CategorySatisfaction, CategoryFatigue, CategoryEfficiency, CategoryCost}
}

// DefaultWeights 默认权重
func DefaultWeights() map[Category]float64 {
	return map[Category]float64{
		CategoryFairness:     30,
		CategorySatisfaction: 30,
		CategoryFatigue:      20,
		CategoryEfficiency:   10,
		CategoryCost:         10,
	}
}

// CategoryScore 单维度得分
type CategoryScore struct {
	Score  int     `json:"score"`  // 1-5
	Value  float64 `json:"value"`  // 原始度量值
	Weight float64 `json:"weight"`
}

// Metric 可插拔的评分维度
type Metric interface {
	Evaluate(in *model.Input, grid model.Grid) CategoryScore
}

// MetricFunc 函数式评分维度
type MetricFunc func(in *model.Input, grid model.Grid) CategoryScore

// Evaluate 实现 Metric
func (f MetricFunc) Evaluate(in *model.Input, grid model.Grid) CategoryScore {
	return f(in, grid)
}

// FixedMetric 固定得分，效率与成本维度的缺省实现
type FixedMetric struct {
	Score int
}

// Evaluate 实现 Metric
func (f FixedMetric) Evaluate(*model.Input, model.Grid) CategoryScore {
	return CategoryScore{Score: clampScore(f.Score), Value: float64(f.Score)}
}

// CoverageMetric 按整体覆盖率评分
type CoverageMetric struct{}

// Evaluate 实现 Metric
func (CoverageMetric) Evaluate(in *model.Input, grid model.Grid) CategoryScore {
	pct := Coverage(in, grid).OverallCoverage
	return CategoryScore{Score: scoreHigherBetter(pct), Value: pct}
}

// FairnessMetric 休息天数标准差，越低越好
type FairnessMetric struct{}

// Evaluate 实现 Metric
func (FairnessMetric) Evaluate(in *model.Input, grid model.Grid) CategoryScore {
	sd := Fairness(in, grid).OffStdDev
	var score int
	switch {
	case sd <= 0.5:
		score = 5
	case sd <= 1.0:
		score = 4
	case sd <= 1.5:
		score = 3
	case sd <= 2.0:
		score = 2
	default:
		score = 1
	}
	return CategoryScore{Score: score, Value: sd}
}

// SatisfactionMetric 休息请求满足率，越高越好
type SatisfactionMetric struct{}

// Evaluate 实现 Metric
func (SatisfactionMetric) Evaluate(in *model.Input, grid model.Grid) CategoryScore {
	pct := RestRequestRate(in, grid)
	return CategoryScore{Score: scoreHigherBetter(pct), Value: pct}
}

// FatigueMetric 达到疲劳连班天数的人数，越少越好
type FatigueMetric struct{}

// Evaluate 实现 Metric
func (FatigueMetric) Evaluate(in *model.Input, grid model.Grid) CategoryScore {
	n := FatiguedStaff(in, grid)
	var score int
	switch {
	case n == 0:
		score = 5
	case n <= 1:
		score = 4
	case n <= 3:
		score = 3
	case n <= 5:
		score = 2
	default:
		score = 1
	}
	return CategoryScore{Score: score, Value: float64(n)}
}

// RestRequestRate 返回休息请求满足率（%），无请求时为 100
// 请求包括预约休息日以及偏好中的 OFF/REQ_OFF，同一员工同一天只计一次
func RestRequestRate(in *model.Input, grid model.Grid) float64 {
	days := in.DaysInMonth()
	total, honoured := 0, 0
	for _, s := range in.Staff {
		for day := 1; day <= days; day++ {
			if !s.WantsRest(day) {
				continue
			}
			total++
			if model.IsRest(grid.Get(s.UID, day)) {
				honoured++
			}
		}
	}
	if total == 0 {
		return 100
	}
	return float64(honoured) / float64(total) * 100
}

// FatiguedStaff 统计最长连班达到 FatigueRunDays 的人数（含上月末尾）
func FatiguedStaff(in *model.Input, grid model.Grid) int {
	limit := in.Rules.FatigueRunDays
	if limit <= 0 {
		limit = 6
	}
	days := in.DaysInMonth()
	n := 0
	for _, s := range in.Staff {
		if longestRun(in.Tail[s.UID], grid[s.UID], days) >= limit {
			n++
		}
	}
	return n
}

// scoreHigherBetter 百分比映射为 1-5 分
func scoreHigherBetter(pct float64) int {
	switch {
	case pct >= 99:
		return 5
	case pct >= 95:
		return 4
	case pct >= 90:
		return 3
	case pct >= 80:
		return 2
	default:
		return 1
	}
}

func clampScore(s int) int {
	return max(1, min(MaxScore, s))
}

// Metrics 一张排班表的评分结果
type Metrics struct {
	Categories map[Category]CategoryScore `json:"categories"`
	Percent    float64                    `json:"percent"` // 加权总分 (0-100)
	GapCount   int                        `json:"gap_count"`
	Gaps       []Gap                      `json:"gaps,omitempty"`
}

// Scorer 多维度评分器，只读不修改排班表
type Scorer struct {
	Metrics map[Category]Metric
	Weights map[Category]float64
}

// NewScorer 创建默认评分器
func NewScorer() *Scorer {
	return &Scorer{
		Metrics: map[Category]Metric{
			CategoryFairness:     FairnessMetric{},
			CategorySatisfaction: SatisfactionMetric{},
			CategoryFatigue:      FatigueMetric{},
			CategoryEfficiency:   FixedMetric{Score: 3},
			CategoryCost:         FixedMetric{Score: 3},
		},
		Weights: DefaultWeights(),
	}
}

// WithMetric 替换某个维度的度量
func (s *Scorer) WithMetric(cat Category, m Metric) *Scorer {
	s.Metrics[cat] = m
	return s
}

// weight 规则中的权重优先于评分器缺省
func (s *Scorer) weight(rules *model.Rules, cat Category) float64 {
	if w, ok := rules.Weights[string(cat)]; ok {
		return w
	}
	return s.Weights[cat]
}

// Score 计算排班表的加权得分与缺口
func (s *Scorer) Score(in *model.Input, grid model.Grid) *Metrics {
	cov := Coverage(in, grid)
	out := &Metrics{
		Categories: make(map[Category]CategoryScore, len(s.Metrics)),
		GapCount:   cov.GapCount,
		Gaps:       cov.Gaps,
	}

	var got, full float64
	for _, cat := range Categories() {
		m, ok := s.Metrics[cat]
		if !ok {
			continue
		}
		cs := m.Evaluate(in, grid)
		cs.Score = clampScore(cs.Score)
		cs.Weight = s.weight(&in.Rules, cat)
		out.Categories[cat] = cs
		got += float64(cs.Score) * cs.Weight
		full += MaxScore * cs.Weight
	}
	if full > 0 {
		out.Percent = got / full * 100
	}
	return out
}
