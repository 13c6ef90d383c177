package model

import "testing"

func TestRules_ApplyDefaults(t *testing.T) {
	var r Rules
	if r.Resolved() {
		t.Fatal("零值规则不应视为已解析")
	}
	r.ApplyDefaults()
	if !r.Resolved() {
		t.Fatal("ApplyDefaults 后应为已解析")
	}
	if r.MinRestHours != 11 || r.MaxRepairSteps != 500 || r.Demand.DefaultDay != DefaultDayDemand {
		t.Errorf("默认值未填充: %+v", r)
	}
}

func TestRules_ResolvedKeepsExplicitZero(t *testing.T) {
	r := DefaultRules()
	r.MinRestHours = 0
	r.MaxRepairSteps = 0
	r.Demand.DefaultDay = 0

	cp := r.Clone()
	cp.ApplyDefaults()

	if cp.MinRestHours != 0 || cp.MaxRepairSteps != 0 || cp.Demand.DefaultDay != 0 {
		t.Errorf("显式的 0 被默认值覆盖: rest=%d steps=%d day=%d",
			cp.MinRestHours, cp.MaxRepairSteps, cp.Demand.DefaultDay)
	}
}
