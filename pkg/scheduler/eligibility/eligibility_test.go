package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paiban/roster/pkg/model"
)

func testRules() *model.Rules {
	rules := model.DefaultRules()
	rules.Shifts = model.NewShiftCatalog([]*model.ShiftType{
		{Code: "D", StartTime: "08:00", EndTime: "16:00"},
		{Code: "E", StartTime: "16:00", EndTime: "24:00", IsEvening: true},
		{Code: "N", StartTime: "00:00", EndTime: "08:00", IsNight: true},
	})
	rules.SupportGroups = []string{"float"}
	return &rules
}

func remainingOf(gaps map[string]int) Remaining {
	return func(day int, code string) int { return gaps[code] }
}

func TestResolver_Allowed(t *testing.T) {
	rules := testRules()
	open := remainingOf(map[string]int{"D": 2, "E": 1, "N": 1})
	filled := remainingOf(map[string]int{"D": 0, "E": 0, "N": 0})

	tests := []struct {
		name      string
		policy    Policy
		staff     *model.Staff
		code      string
		remaining Remaining
		expected  bool
	}{
		{"无包班可排任意班", PolicyStrict, &model.Staff{UID: "a"}, "N", open, true},
		{"支援人员不受限", PolicyStrict, &model.Staff{UID: "a", Package: "N", Support: true}, "E", open, true},
		{"支援组不受限", PolicyStrict, &model.Staff{UID: "a", Package: "N", Group: "float"}, "E", open, true},
		{"本包班", PolicyStrict, &model.Staff{UID: "a", Package: "N"}, "N", open, true},
		{"大夜包班有缺口不可溢出白班", PolicyStrict, &model.Staff{UID: "a", Package: "N"}, "D", open, false},
		{"大夜包班无缺口溢出白班", PolicyStrict, &model.Staff{UID: "a", Package: "N"}, "D", filled, true},
		{"严格策略大夜不可借调小夜", PolicyStrict, &model.Staff{UID: "a", Package: "N"}, "E", filled, false},
		{"严格策略小夜不可借调大夜", PolicyStrict, &model.Staff{UID: "a", Package: "E"}, "N", filled, false},
		{"宽松策略大夜可借调小夜", PolicyPermissive, &model.Staff{UID: "a", Package: "N"}, "E", open, true},
		{"宽松策略小夜仍不可借调大夜", PolicyPermissive, &model.Staff{UID: "a", Package: "E"}, "N", filled, false},
		{"白班包班白班有缺口不可支援夜间", PolicyStrict, &model.Staff{UID: "a", Package: "D"}, "N", open, false},
		{"白班包班白班已满可支援夜间", PolicyStrict, &model.Staff{UID: "a", Package: "D"}, "E", filled, true},
		{"未知班别", PolicyStrict, &model.Staff{UID: "a"}, "X", open, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.policy, rules)
			assert.Equal(t, tt.expected, r.Allowed(tt.staff, 1, tt.code, tt.remaining))
		})
	}
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "strict", PolicyStrict.String())
	assert.Equal(t, "permissive", PolicyPermissive.String())
}
