package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/roster/internal/constraints"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalize"
	"github.com/paiban/roster/pkg/scheduler/batch"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
)

// gridFile 输出文件格式
type gridFile struct {
	RunID    string         `json:"run_id"`
	Strategy solver.Tag     `json:"strategy"`
	Grid     model.Grid     `json:"grid"`
	Metrics  *stats.Metrics `json:"metrics"`
}

// loadInput 读取并规范化输入文件
func (a *app) loadInput(path string) (*model.Input, error) {
	raw, err := normalize.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return normalize.NormalizeWith(raw, a.cfg.Scheduler.Rules())
}

func generateCmd(a *app) *cobra.Command {
	var (
		input      string
		out        string
		strategies []string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "运行全部策略并输出最优排班表",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.loadInput(input)
			if err != nil {
				return err
			}

			runner := batch.NewRunner()
			if len(strategies) == 0 {
				strategies = a.cfg.Scheduler.Strategies
			}
			runner.Strategies = make([]solver.Tag, len(strategies))
			for i, s := range strategies {
				runner.Strategies[i] = solver.Tag(s)
			}
			runner.Workers = a.cfg.Scheduler.Workers

			if timeout <= 0 {
				timeout = a.cfg.Scheduler.Timeout
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report, err := runner.Run(ctx, in)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printReport(w, report)

			best := report.Best()
			if best == nil {
				return fmt.Errorf("全部策略均失败")
			}
			printGrid(w, in, best.Grid)

			if out == "" {
				return nil
			}
			return writeJSON(out, gridFile{
				RunID:    report.RunID.String(),
				Strategy: best.Strategy,
				Grid:     best.Grid,
				Metrics:  best.Metrics,
			})
		},
	}

	cmd.Flags().StringVarP(&input, "file", "f", "", "输入文件（.yaml/.yml/.json）")
	cmd.Flags().StringVarP(&out, "out", "o", "", "将最优排班写入 JSON 文件")
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", nil, "只运行指定策略（可重复，如 v1,v3）")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "运行超时（默认取配置）")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func scoreCmd(a *app) *cobra.Command {
	var input, gridPath string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "对已有排班表评分",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.loadInput(input)
			if err != nil {
				return err
			}
			grid, err := readGrid(gridPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			m := stats.NewScorer().Score(in, grid)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "维度\t得分\t数值\t权重")
			for _, cat := range stats.Categories() {
				s := m.Categories[cat]
				fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.0f\n", cat, s.Score, s.Value, s.Weight)
			}
			_ = tw.Flush()
			fmt.Fprintf(w, "\n总分: %.2f%%  缺口: %d\n", m.Percent, m.GapCount)
			for _, g := range m.Gaps {
				fmt.Fprintf(w, "  %s %s 需 %d 排 %d\n", g.Date, g.Shift, g.Required, g.Assigned)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "", "输入文件")
	cmd.Flags().StringVarP(&gridPath, "grid", "g", "", "排班表 JSON（generate --out 的输出）")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("grid")
	return cmd
}

func validateCmd(a *app) *cobra.Command {
	var input, gridPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验排班表是否满足全部硬约束",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.loadInput(input)
			if err != nil {
				return err
			}
			grid, err := readGrid(gridPath)
			if err != nil {
				return err
			}

			result := builtin.NewRosterManager(&in.Rules).Evaluate(constraint.NewContext(in, grid))
			w := cmd.OutOrStdout()
			for _, v := range result.HardViolations {
				fmt.Fprintf(w, "✗ [%s] %s 第%d天: %s\n", v.ConstraintType, v.UID, v.Day, v.Message)
			}
			for _, v := range result.SoftViolations {
				fmt.Fprintf(w, "· [%s] %s 第%d天: %s\n", v.ConstraintType, v.UID, v.Day, v.Message)
			}
			if !result.IsValid {
				return fmt.Errorf("违反硬约束 %d 项", len(result.HardViolations))
			}
			fmt.Fprintf(w, "✓ 满足全部硬约束（得分 %.1f）\n", result.Score)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "", "输入文件")
	cmd.Flags().StringVarP(&gridPath, "grid", "g", "", "排班表 JSON")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("grid")
	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "列出支持的约束与默认参数",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "约束\t类别\t参数")
			for _, def := range constraints.GetLibrary() {
				params := ""
				for i, p := range def.Params {
					if i > 0 {
						params += ", "
					}
					params += p.Name + "=" + p.Default
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", def.Name, def.Type, params)
			}
			return tw.Flush()
		},
	}
}

func printReport(w io.Writer, report *batch.Report) {
	fmt.Fprintf(w, "运行 %s，耗时 %s\n\n", report.RunID, report.Elapsed.Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "策略\t借调\t缺口\t得分\t耗时\t状态")
	for _, r := range report.Results {
		if r.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s\t%s\n", r.Strategy, r.Policy, r.Duration.Round(time.Millisecond), r.Error())
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f%%\t%s\tok\n", r.Strategy, r.Policy, r.GapCount, r.Percent, r.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

// printGrid 以员工为行、日期为列输出排班表
func printGrid(w io.Writer, in *model.Input, grid model.Grid) {
	days := in.DaysInMonth()
	uids := make([]string, 0, len(grid))
	for uid := range grid {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	tw := tabwriter.NewWriter(w, 0, 2, 1, ' ', 0)
	fmt.Fprint(tw, "员工")
	for d := 1; d <= days; d++ {
		fmt.Fprintf(tw, "\t%d", d)
	}
	fmt.Fprintln(tw)
	for _, uid := range uids {
		fmt.Fprint(tw, uid)
		for d := 1; d <= days; d++ {
			code := grid.Get(uid, d)
			switch code {
			case model.CodeOff:
				code = "-"
			case model.CodeReqOff:
				code = "R"
			}
			fmt.Fprintf(tw, "\t%s", code)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func readGrid(path string) (model.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取排班表失败: %w", err)
	}
	// 同时接受 generate 的输出与裸排班表
	var file gridFile
	if err := json.Unmarshal(data, &file); err == nil && file.Grid != nil {
		return file.Grid, nil
	}
	var grid model.Grid
	if err := json.Unmarshal(data, &grid); err != nil {
		return nil, fmt.Errorf("解析排班表失败: %w", err)
	}
	return grid, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
