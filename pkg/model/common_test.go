package model

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{name: "零点", input: "00:00", expected: 0},
		{name: "早八点", input: "08:00", expected: 480},
		{name: "半点", input: "16:30", expected: 990},
		{name: "日终", input: "24:00", expected: 1440},
		{name: "格式错误", input: "8点", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseClock(%q) 应该返回错误", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseClock(%q) = %d, expected %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(990); got != "16:30" {
		t.Errorf("FormatClock(990) = %s", got)
	}
	if got := FormatClock(1440 + 60); got != "01:00" {
		t.Errorf("FormatClock(1500) = %s", got)
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		days  int
	}{
		{2026, time.January, 31},
		{2026, time.February, 28},
		{2028, time.February, 29},
		{2026, time.April, 30},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.days {
			t.Errorf("DaysIn(%d, %v) = %d, expected %d", tt.year, tt.month, got, tt.days)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	// 2026-03-07 是周六
	if !IsWeekend(DateOf(2026, time.March, 7)) {
		t.Error("周六应该是周末")
	}
	if IsWeekend(DateOf(2026, time.March, 9)) {
		t.Error("周一不应该是周末")
	}
}
