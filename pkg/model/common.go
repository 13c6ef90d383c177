// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"
)

// 日期格式
const DateLayout = "2006-01-02"

// 一天的分钟数
const MinutesPerDay = 24 * 60

// ParseClock 解析 HH:MM 为当天零点起的分钟数
// "24:00" 视为当天结束
func ParseClock(s string) (int, error) {
	if s == "24:00" {
		return MinutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("无效的时间格式 %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock 将分钟数格式化为 HH:MM
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DaysIn 返回某年某月的天数
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOf 返回某年某月第 day 天的日期（day 可越界，按日历顺延）
func DateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsWeekend 检查是否为周末
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
