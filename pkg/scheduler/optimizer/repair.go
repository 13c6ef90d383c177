package optimizer

import (
	"context"

	"github.com/paiban/roster/pkg/model"
)

// RepairConfig 回溯修复配置
type RepairConfig struct {
	Depth    int // 可回溯修改的前置天数
	MaxSteps int // 尝试次数上限
	TabuSize int
}

// RepairConfigFrom 从规则读取修复配置
func RepairConfigFrom(rules *model.Rules) RepairConfig {
	return RepairConfig{
		Depth:    rules.BacktrackDepth,
		MaxSteps: rules.MaxRepairSteps,
		TabuSize: rules.MaxRepairSteps,
	}
}

// RepairResult 修复结果
type RepairResult struct {
	GapBefore int  `json:"gap_before"`
	GapAfter  int  `json:"gap_after"`
	Steps     int  `json:"steps"`
	Stopped   bool `json:"stopped"` // 因步数或截止时间提前结束
}

// Closed 返回补上的缺口数
func (r RepairResult) Closed() int {
	return r.GapBefore - r.GapAfter
}

// gapCell 待补的缺口
type gapCell struct {
	day  int
	code string
}

// Repair 有界弹出链修复
//
// 对缺口 (d, c) 寻找当天休息、具备资格但连续性检查不通过的员工 s，
// 把 s 在 [d-depth, d-1] 内的某个上班日改为休息，让 s 补上 (d, c)，
// 再找另一名员工接替被让出的班。三步全部成功才提交，否则回滚。
// 预约休息格永不修改，结果不会比输入更差。
func Repair(ctx context.Context, b Board, cfg RepairConfig) RepairResult {
	res := RepairResult{GapBefore: b.TotalGap()}
	tabu := NewTabuList(max(cfg.TabuSize, 1))

	for {
		progress := false
		for _, g := range openGaps(b) {
			if res.Steps >= cfg.MaxSteps || ctx.Err() != nil {
				res.Stopped = true
				res.GapAfter = b.TotalGap()
				return res
			}
			for b.Gap(g.day, g.code) > 0 && tryChain(b, g, cfg, tabu, &res) {
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	res.GapAfter = b.TotalGap()
	return res
}

// openGaps 按日期、班别顺序列出当前缺口
func openGaps(b Board) []gapCell {
	var gaps []gapCell
	for day := 1; day <= b.Days(); day++ {
		for _, code := range b.Codes() {
			if b.Gap(day, code) > 0 {
				gaps = append(gaps, gapCell{day: day, code: code})
			}
		}
	}
	return gaps
}

// tryChain 为一个缺口尝试一条弹出链，成功返回 true
func tryChain(b Board, g gapCell, cfg RepairConfig, tabu *TabuList, res *RepairResult) bool {
	for _, s := range b.Staff() {
		if b.Cell(s.UID, g.day) != model.CodeOff || !b.Eligible(s, g.day, g.code) {
			continue
		}
		// 直接可排的员工由填充阶段处理
		if b.IsValidContinuity(s, g.day, g.code) {
			continue
		}

		for p := g.day - 1; p >= 1 && p >= g.day-cfg.Depth; p-- {
			revised := b.Cell(s.UID, p)
			if !model.IsWorking(revised) {
				continue
			}
			key := moveKey(s.UID, g.day, g.code, p)
			if tabu.Contains(key) {
				continue
			}
			if res.Steps >= cfg.MaxSteps {
				return false
			}
			res.Steps++
			tabu.Add(key)

			if ejectAndRefill(b, s, g, p, revised) {
				return true
			}
		}
	}
	return false
}

// ejectAndRefill 执行一条弹出链，失败时回滚
func ejectAndRefill(b Board, s *model.Staff, g gapCell, p int, revised string) bool {
	j := newJournal(b)

	if err := j.apply(p, s.UID, revised, model.CodeOff); err != nil {
		return false
	}
	if !b.Eligible(s, g.day, g.code) || !b.IsValidContinuity(s, g.day, g.code) {
		j.rollback()
		return false
	}
	if err := j.apply(g.day, s.UID, model.CodeOff, g.code); err != nil {
		j.rollback()
		return false
	}

	for _, t := range b.Staff() {
		if t.UID == s.UID || b.Cell(t.UID, p) != model.CodeOff {
			continue
		}
		if !b.Eligible(t, p, revised) || !b.IsValidContinuity(t, p, revised) {
			continue
		}
		if err := j.apply(p, t.UID, model.CodeOff, revised); err != nil {
			continue
		}
		j.commit()
		return true
	}

	j.rollback()
	return false
}
