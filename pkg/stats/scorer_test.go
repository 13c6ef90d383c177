package stats

import (
	"math"
	"testing"

	"github.com/paiban/roster/pkg/model"
)

func TestScorer_Score(t *testing.T) {
	in := sampleInput()
	grid := sampleGrid()

	m := NewScorer().Score(in, grid)

	want := map[Category]int{
		CategoryFairness:     1, // 标准差 14.5
		CategorySatisfaction: 1, // 3 个请求满足 2 个
		CategoryFatigue:      4, // 1 人连班 30 天
		CategoryEfficiency:   3,
		CategoryCost:         3,
	}
	for cat, score := range want {
		if got := m.Categories[cat].Score; got != score {
			t.Errorf("%s: expected score %d, got %d", cat, score, got)
		}
	}

	// (1*30 + 1*30 + 4*20 + 3*10 + 3*10) / (5*100) * 100
	if math.Abs(m.Percent-40) > 1e-9 {
		t.Errorf("Expected 40%%, got %.2f", m.Percent)
	}
	if m.GapCount != 1 {
		t.Errorf("Expected gap count 1, got %d", m.GapCount)
	}
}

func TestScorer_RuleWeightsOverride(t *testing.T) {
	in := sampleInput()
	in.Rules.Weights = map[string]float64{"efficiency": 0, "cost": 0}

	m := NewScorer().Score(in, sampleGrid())

	// (30 + 30 + 80) / (5*80) * 100
	if math.Abs(m.Percent-35) > 1e-9 {
		t.Errorf("Expected 35%%, got %.2f", m.Percent)
	}
	if m.Categories[CategoryCost].Weight != 0 {
		t.Errorf("Rule weight should override scorer default")
	}
}

func TestScorer_PluggableMetric(t *testing.T) {
	s := NewScorer().
		WithMetric(CategoryEfficiency, CoverageMetric{}).
		WithMetric(CategoryCost, MetricFunc(func(*model.Input, model.Grid) CategoryScore {
			return CategoryScore{Score: 9}
		}))

	m := s.Score(sampleInput(), sampleGrid())

	if got := m.Categories[CategoryEfficiency].Score; got != 4 {
		t.Errorf("Coverage 96.8%% should score 4, got %d", got)
	}
	if got := m.Categories[CategoryCost].Score; got != MaxScore {
		t.Errorf("Scores should be clamped to %d, got %d", MaxScore, got)
	}
}

func TestScorer_ReadOnlyAndIdempotent(t *testing.T) {
	in := sampleInput()
	grid := sampleGrid()
	snapshot := grid.Clone()
	s := NewScorer()

	first := s.Score(in, grid)
	second := s.Score(in, grid)

	if !grid.Equal(snapshot) {
		t.Fatal("Scoring must not mutate the grid")
	}
	if first.Percent != second.Percent || first.GapCount != second.GapCount {
		t.Errorf("Scoring should be idempotent: %v vs %v", first.Percent, second.Percent)
	}
}

func TestRestRequestRate(t *testing.T) {
	in := sampleInput()
	grid := sampleGrid()

	if got := RestRequestRate(in, grid); math.Abs(got-200.0/3.0) > 1e-9 {
		t.Errorf("Expected 66.67%%, got %.2f", got)
	}

	in.Staff[0].RequestedOff = nil
	in.Staff[1].Preferences = nil
	if got := RestRequestRate(in, grid); got != 100 {
		t.Errorf("No requests should count as 100%%, got %.2f", got)
	}
}

func TestFatiguedStaff_Thresholds(t *testing.T) {
	in := sampleInput()
	grid := sampleGrid()

	if got := FatiguedStaff(in, grid); got != 1 {
		t.Fatalf("Expected 1 fatigued staff, got %d", got)
	}

	// b 上月末连上 5 天，本月 1 日再上班即达到 6 天
	in.Tail = model.Tail{"b": {"D", "D", "D", "D", "D"}}
	grid["b"][1] = "D"
	grid["b"][2] = model.CodeOff
	if got := FatiguedStaff(in, grid); got != 2 {
		t.Errorf("Tail run should count toward fatigue, got %d", got)
	}
}
