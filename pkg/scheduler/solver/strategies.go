package solver

import (
	"context"

	"github.com/paiban/roster/pkg/model"
)

// 强制填充的类别顺序：夜间最难排
var forceOrder = []model.ShiftCategory{model.CategoryNight, model.CategoryEvening, model.CategoryDay}

// fillGlobalLayered V1：全月志愿/包班，再按缺口大小全局强制填充
func fillGlobalLayered(ctx context.Context, b *base, c *Context) error {
	days := c.allDays()
	c.preferenceFill(days, c.Codes())
	b.phase("preference", c)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	for _, g := range c.gapsBySize(days, c.Codes()) {
		c.fillGap(g.day, g.code, byMostOff)
	}
	b.phase("force", c)
	return nil
}

// fillSequential V2：按日历顺序逐日填充，每天先志愿再按大夜、小夜、白班强制填充
func fillSequential(ctx context.Context, b *base, c *Context) error {
	codes := c.codesByCategories(forceOrder...)
	for day := 1; day <= c.Days(); day++ {
		if err := checkpoint(ctx); err != nil {
			return err
		}
		c.preferenceFill([]int{day}, c.Codes())
		for _, code := range codes {
			c.fillGap(day, code, byFewestOfCode)
		}
	}
	b.phase("sequential", c)
	return nil
}

// waterfallComparators V3 各类别的候选排序
var waterfallComparators = ComparatorTable{
	model.CategoryNight:   byStrictCount,
	model.CategoryEvening: byStrictCount,
	model.CategoryDay:     byOverflowFirst,
}

// fillWaterfall V3：大夜、小夜、白班三个阶段，每阶段先志愿再按缺口大小填充
func fillWaterfall(ctx context.Context, b *base, c *Context) error {
	days := c.allDays()
	for _, cat := range forceOrder {
		if err := checkpoint(ctx); err != nil {
			return err
		}
		codes := c.codesByCategories(cat)
		if len(codes) == 0 {
			continue
		}
		c.preferenceFill(days, codes)
		for _, g := range c.gapsBySize(days, codes) {
			c.fillGap(g.day, g.code, waterfallComparators.For(c, g.code))
		}
		b.phase(cat.String(), c)
	}
	return nil
}

// fillBottleneck V4：先排周末与节假日，再排平日，每天独立处理
func fillBottleneck(ctx context.Context, b *base, c *Context) error {
	hard, easy := splitDays(c)
	codes := c.codesByCategories(forceOrder...)
	for _, set := range [][]int{hard, easy} {
		for _, day := range set {
			if err := checkpoint(ctx); err != nil {
				return err
			}
			c.preferenceFill([]int{day}, c.Codes())
			for _, code := range codes {
				c.fillGap(day, code, byMostOff)
			}
		}
	}
	b.phase("bottleneck", c)
	return nil
}

// splitDays 把当月日期分为难排日（周末、节假日）与平日
func splitDays(c *Context) (hard, easy []int) {
	rules := c.Rules()
	for day := 1; day <= c.Days(); day++ {
		if model.IsWeekend(c.Date(day)) || rules.IsHoliday(day) {
			hard = append(hard, day)
		} else {
			easy = append(easy, day)
		}
	}
	return hard, easy
}
