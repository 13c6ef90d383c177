package stats

import (
	"math"
	"testing"
	"time"

	"github.com/paiban/roster/pkg/model"
)

// sampleInput 2026年3月，两名员工，白班每天需要 1 人，夜班不需要
func sampleInput() *model.Input {
	rules := model.DefaultRules()
	rules.Shifts = model.NewShiftCatalog([]*model.ShiftType{
		{Code: "D", StartTime: "08:00", EndTime: "16:00"},
		{Code: "N", StartTime: "22:00", EndTime: "06:00", IsNight: true},
	})
	rules.Demand.Base = map[string]int{"D": 1, "N": 0}
	return &model.Input{
		Year:  2026,
		Month: time.March,
		Staff: []*model.Staff{
			{UID: "a", Name: "甲", RequestedOff: []int{1}},
			{UID: "b", Name: "乙", Preferences: map[int][]string{
				2: {model.CodeReqOff},
				5: {model.CodeOff},
			}},
		},
		Rules: rules,
	}
}

// sampleGrid a 除 1 日外每天白班，b 只在 2 日上白班
func sampleGrid() model.Grid {
	g := model.Grid{"a": {}, "b": {}}
	for day := 1; day <= 31; day++ {
		g["a"][day] = "D"
		g["b"][day] = model.CodeOff
	}
	g["a"][1] = model.CodeReqOff
	g["b"][2] = "D"
	return g
}

func TestCoverage_Gaps(t *testing.T) {
	m := Coverage(sampleInput(), sampleGrid())

	if m.Required != 31 {
		t.Errorf("Expected 31 required, got %d", m.Required)
	}
	if m.Assigned != 30 {
		t.Errorf("Expected 30 assigned (over-staffing not counted), got %d", m.Assigned)
	}
	if m.GapCount != 1 || len(m.Gaps) != 1 {
		t.Fatalf("Expected a single gap, got %d (%v)", m.GapCount, m.Gaps)
	}

	gap := m.Gaps[0]
	if gap.Day != 1 || gap.Shift != "D" || gap.Shortage != 1 || gap.Date != "2026-03-01" {
		t.Errorf("Unexpected gap %+v", gap)
	}

	want := 30.0 / 31.0 * 100
	if math.Abs(m.OverallCoverage-want) > 1e-9 {
		t.Errorf("Expected coverage %.2f, got %.2f", want, m.OverallCoverage)
	}
	if m.ShiftTypeCoverage["N"] != 100 {
		t.Errorf("Shift with no demand should be fully covered, got %.2f", m.ShiftTypeCoverage["N"])
	}
	if m.Daily[1].StaffCount != 2 || m.Daily[1].TotalHours != 16 {
		t.Errorf("Unexpected day 2 coverage %+v", m.Daily[1])
	}
}

func TestCoverage_EmptyGrid(t *testing.T) {
	in := sampleInput()
	m := Coverage(in, model.Grid{})

	if m.GapCount != 31 {
		t.Errorf("Expected 31 gaps, got %d", m.GapCount)
	}
	if m.OverallCoverage != 0 {
		t.Errorf("Expected 0 coverage, got %.2f", m.OverallCoverage)
	}
	// 缺口按大小、日期排序
	if m.Gaps[0].Day != 1 || m.Gaps[30].Day != 31 {
		t.Errorf("Gaps should be ordered by day when shortages tie")
	}
}
