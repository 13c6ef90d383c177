package solver

import (
	"context"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/eligibility"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
)

// Tag 策略标识
type Tag string

const (
	TagGlobalLayered Tag = "v1" // 全局分层
	TagSequential    Tag = "v2" // 按日顺序
	TagWaterfall     Tag = "v3" // 班别瀑布
	TagBottleneck    Tag = "v4" // 瓶颈优先
)

// AllTags 返回全部策略
func AllTags() []Tag {
	return []Tag{TagGlobalLayered, TagSequential, TagWaterfall, TagBottleneck}
}

// Strategy 填充策略
type Strategy interface {
	// Name 返回策略标识
	Name() Tag

	// Policy 返回包班借调策略
	Policy() eligibility.Policy

	// Run 生成完整排班表
	Run(ctx context.Context) (model.Grid, error)
}

// Options 策略选项
type Options struct {
	// Policy 覆盖策略默认的借调策略
	Policy *eligibility.Policy
	// SkipRepair 跳过回溯修复
	SkipRepair bool
	// SkipBalance 跳过均衡调整
	SkipBalance bool
}

// filler 策略的填充阶段
type filler func(ctx context.Context, b *base, c *Context) error

// constructor 策略定义：默认借调策略与填充阶段
type constructor struct {
	policy eligibility.Policy
	fill   filler
}

var registry = map[Tag]constructor{
	TagGlobalLayered: {policy: eligibility.PolicyPermissive, fill: fillGlobalLayered},
	TagSequential:    {policy: eligibility.PolicyStrict, fill: fillSequential},
	TagWaterfall:     {policy: eligibility.PolicyStrict, fill: fillWaterfall},
	TagBottleneck:    {policy: eligibility.PolicyStrict, fill: fillBottleneck},
}

// New 创建策略，输入在此深拷贝，策略之间不共享可变状态
func New(tag Tag, in *model.Input, opts Options) (Strategy, error) {
	ctor, ok := registry[tag]
	if !ok {
		return nil, apperrors.UnknownStrategy(string(tag))
	}
	if in == nil {
		return nil, apperrors.InvalidInput("input", "不能为空")
	}

	own := in.Clone()
	own.Rules.ApplyDefaults()

	policy := ctor.policy
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	return &base{
		tag:    tag,
		in:     own,
		policy: policy,
		fill:   ctor.fill,
		opts:   opts,
		log:    logger.NewSchedulerLogger(),
	}, nil
}

// base 所有策略共用的运行骨架
type base struct {
	tag    Tag
	in     *model.Input
	policy eligibility.Policy
	fill   filler
	opts   Options
	log    *logger.SchedulerLogger
}

// Name 返回策略标识
func (b *base) Name() Tag { return b.tag }

// Policy 返回借调策略
func (b *base) Policy() eligibility.Policy { return b.policy }

// Run 创建新的上下文并依次执行填充、修复、均衡
func (b *base) Run(ctx context.Context) (model.Grid, error) {
	c := b.newContext()

	if err := b.fill(ctx, b, c); err != nil {
		return nil, err
	}
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	rules := c.Rules()
	if !b.opts.SkipRepair && c.TotalGap() > rules.Tolerance {
		res := optimizer.Repair(ctx, c, optimizer.RepairConfigFrom(rules))
		b.log.RepairResult(string(b.tag), res.GapBefore, res.GapAfter, res.Steps)
	}
	if !b.opts.SkipBalance {
		optimizer.Balance(c, rules.MaxBalanceSwaps)
		b.phase("balance", c)
	}

	return c.Grid(), nil
}

func (b *base) newContext() *Context {
	return NewContext(b.in, b.policy, builtin.NewRosterManager(&b.in.Rules))
}

func (b *base) phase(name string, c *Context) {
	b.log.PhaseComplete(string(b.tag), name, c.TotalGap())
}

// checkpoint 阶段之间检查取消
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "排班被取消")
	}
	return nil
}

var _ optimizer.Board = (*Context)(nil)
