// Package optimizer 提供排班修复与均衡算法
package optimizer

import (
	"github.com/paiban/roster/pkg/model"
)

// Board 优化器操作的排班状态
// 所有修改必须经由 UpdateShift，计数器随之更新
type Board interface {
	Days() int
	Staff() []*model.Staff
	Codes() []string
	Rules() *model.Rules
	Cell(uid string, day int) string
	Counters(uid string) *model.Counters

	Gap(day int, code string) int
	TotalGap() int

	Eligible(s *model.Staff, day int, code string) bool
	IsValidContinuity(s *model.Staff, day int, code string) bool
	RowValid(s *model.Staff) bool

	UpdateShift(day int, uid, from, to string) error
}
