// Package batch 并行运行全部排班策略并按缺口与得分排序
package batch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
)

// Factory 策略构造函数
type Factory func(tag solver.Tag, in *model.Input, opts solver.Options) (solver.Strategy, error)

// Observer 接收每个策略与整批的运行结果（用于指标采集）
type Observer interface {
	ObserveStrategy(strategy string, duration time.Duration, gap int, percent float64, failed bool)
	// ObserveBatch success 表示至少一个策略成功
	ObserveBatch(success bool)
}

// Result 单个策略的结果
type Result struct {
	ID       uuid.UUID      `json:"id"`
	Strategy solver.Tag     `json:"strategy"`
	Policy   string         `json:"policy,omitempty"`
	Grid     model.Grid     `json:"grid,omitempty"`
	Metrics  *stats.Metrics `json:"metrics,omitempty"`
	GapCount int            `json:"gap_count"`
	Percent  float64        `json:"percent"`
	Duration time.Duration  `json:"duration"`
	Err      error          `json:"-"`
}

// Failed 策略是否失败
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Error 返回失败原因，成功时为空
func (r *Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Report 一次批量运行的报告
type Report struct {
	RunID   uuid.UUID     `json:"run_id"`
	Results []*Result     `json:"results"` // 已排序，最优在前
	Elapsed time.Duration `json:"elapsed"`
}

// Best 返回最优的成功结果，全部失败时为 nil
func (r *Report) Best() *Result {
	for _, res := range r.Results {
		if !res.Failed() {
			return res
		}
	}
	return nil
}

// Runner 批量运行器
type Runner struct {
	Strategies []solver.Tag
	Workers    int
	Scorer     *stats.Scorer
	Options    solver.Options
	Factory    Factory
	Observer   Observer

	log *logger.SchedulerLogger
}

// NewRunner 创建运行全部策略的批量运行器
func NewRunner() *Runner {
	tags := solver.AllTags()
	return &Runner{
		Strategies: tags,
		Workers:    len(tags),
		Scorer:     stats.NewScorer(),
		Factory:    solver.New,
		log:        logger.NewSchedulerLogger(),
	}
}

// Run 运行全部策略
// 每个策略在独立的协程中使用自己的输入副本；单个策略失败或崩溃只记录在其结果中
func (r *Runner) Run(ctx context.Context, in *model.Input) (*Report, error) {
	if in == nil {
		return nil, apperrors.InvalidInput("input", "不能为空")
	}
	if len(r.Strategies) == 0 {
		return nil, apperrors.InvalidInput("strategies", "至少需要一个策略")
	}
	r.defaults()

	report := &Report{RunID: uuid.New()}
	ctx = logger.ContextWithRunID(ctx, report.RunID.String())
	start := time.Now()

	results := make([]*Result, len(r.Strategies))
	var g errgroup.Group
	g.SetLimit(r.Workers)
	for i, tag := range r.Strategies {
		own := in.Clone()
		g.Go(func() error {
			results[i] = r.runOne(ctx, report.RunID, tag, own)
			return nil
		})
	}
	_ = g.Wait()

	rank(results)
	report.Results = results
	report.Elapsed = time.Since(start)
	if r.Observer != nil {
		r.Observer.ObserveBatch(report.Best() != nil)
	}
	return report, nil
}

func (r *Runner) defaults() {
	if r.Workers <= 0 {
		r.Workers = len(r.Strategies)
	}
	if r.Scorer == nil {
		r.Scorer = stats.NewScorer()
	}
	if r.Factory == nil {
		r.Factory = solver.New
	}
	if r.log == nil {
		r.log = logger.NewSchedulerLogger()
	}
}

// runOne 运行单个策略，恢复崩溃并转为失败结果
func (r *Runner) runOne(ctx context.Context, runID uuid.UUID, tag solver.Tag, in *model.Input) (res *Result) {
	start := time.Now()
	res = &Result{ID: uuid.New(), Strategy: tag}

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Err = apperrors.StrategyFailed(string(tag), res.Err)
			res.Grid, res.Metrics = nil, nil
			res.GapCount, res.Percent = math.MaxInt, 0
			r.log.StrategyFailed(string(tag), res.Err)
		} else {
			r.log.RunComplete(runID.String(), string(tag), res.Duration, res.Percent, res.GapCount)
		}
		if r.Observer != nil {
			r.Observer.ObserveStrategy(string(tag), res.Duration, res.GapCount, res.Percent, res.Failed())
		}
	}()

	in.Rules.ApplyDefaults()
	r.log.StartRun(runID.String(), string(tag), len(in.Staff), in.DaysInMonth())

	strategy, err := r.Factory(tag, in, r.Options)
	if err != nil {
		res.Err = err
		return res
	}
	res.Policy = strategy.Policy().String()
	grid, err := strategy.Run(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	res.Grid = grid
	res.Metrics = r.Scorer.Score(in, grid)
	res.GapCount = res.Metrics.GapCount
	res.Percent = res.Metrics.Percent
	return res
}

// rank 缺口升序、得分降序、策略标识升序
func rank(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.GapCount != b.GapCount {
			return a.GapCount < b.GapCount
		}
		if a.Percent != b.Percent {
			return a.Percent > b.Percent
		}
		return a.Strategy < b.Strategy
	})
}
