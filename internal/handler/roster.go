// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/constraints"
	"github.com/paiban/roster/internal/repository"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalize"
	"github.com/paiban/roster/pkg/scheduler/batch"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
)

// 默认请求体上限
const defaultMaxBodyBytes = 8 << 20

// RosterStore 排班结果的持久化接口
type RosterStore interface {
	LoadInput(ctx context.Context, unit string, year, month int) (*model.Input, error)
	SaveResult(ctx context.Context, unit string, in *model.Input, runID uuid.UUID, strategy string, grid model.Grid, gap int, percent float64) (*repository.Roster, error)
	LoadRoster(ctx context.Context, id uuid.UUID) (*repository.Roster, model.Grid, error)
	ListRosters(ctx context.Context, filter repository.ListFilter) ([]*repository.Roster, int, error)
	LatestRoster(ctx context.Context, unit string, year, month int) (*repository.Roster, error)
	PublishRoster(ctx context.Context, id uuid.UUID) error
	DeleteRoster(ctx context.Context, id uuid.UUID) error
	ImportUnit(ctx context.Context, unit string, in *model.Input) error
}

// RosterHandler 排班处理器
type RosterHandler struct {
	cfg      config.SchedulerConfig
	maxBody  int64
	store    RosterStore
	observer batch.Observer
	scorer   *stats.Scorer
}

// Option 处理器选项
type Option func(*RosterHandler)

// WithStore 启用持久化
func WithStore(s RosterStore) Option {
	return func(h *RosterHandler) { h.store = s }
}

// WithObserver 设置策略结果观察者
func WithObserver(o batch.Observer) Option {
	return func(h *RosterHandler) { h.observer = o }
}

// WithMaxBodyBytes 设置请求体上限
func WithMaxBodyBytes(n int64) Option {
	return func(h *RosterHandler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewRosterHandler 创建排班处理器
func NewRosterHandler(cfg config.SchedulerConfig, opts ...Option) *RosterHandler {
	h := &RosterHandler{
		cfg:     cfg,
		maxBody: defaultMaxBodyBytes,
		scorer:  stats.NewScorer(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register 注册路由
func (h *RosterHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/roster/generate", h.Generate)
	mux.HandleFunc("POST /api/v1/roster/score", h.Score)
	mux.HandleFunc("POST /api/v1/roster/validate", h.Validate)
	mux.HandleFunc("GET /api/v1/roster/rules", h.Rules)
	mux.HandleFunc("GET /api/v1/roster/latest", h.Latest)
	mux.HandleFunc("GET /api/v1/roster/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/roster/{id}/publish", h.Publish)
	mux.HandleFunc("DELETE /api/v1/roster/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/rosters", h.List)
	mux.HandleFunc("PUT /api/v1/units/{unit}", h.ImportUnit)
}

// GenerateRequest 排班生成请求
// Input 为空时从存储中按 Unit/Year/Month 读取
type GenerateRequest struct {
	Input      *normalize.RawInput `json:"input,omitempty"`
	Unit       string              `json:"unit,omitempty"`
	Year       int                 `json:"year,omitempty"`
	Month      int                 `json:"month,omitempty"`
	Strategies []string            `json:"strategies,omitempty"`
	Persist    bool                `json:"persist,omitempty"`
	TimeoutSec int                 `json:"timeout_seconds,omitempty"`
}

// StrategyOutput 单个策略的结果摘要
type StrategyOutput struct {
	Strategy solver.Tag `json:"strategy"`
	Policy   string     `json:"policy,omitempty"`
	GapCount int        `json:"gap_count"`
	Percent  float64    `json:"percent"`
	Duration string     `json:"duration"`
	Error    string     `json:"error,omitempty"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	RunID      uuid.UUID          `json:"run_id"`
	RosterID   *uuid.UUID         `json:"roster_id,omitempty"`
	Best       solver.Tag         `json:"best,omitempty"`
	Grid       model.Grid         `json:"grid,omitempty"`
	Metrics    *stats.Metrics     `json:"metrics,omitempty"`
	Strategies []StrategyOutput   `json:"strategies"`
	Audit      *constraint.Result `json:"audit,omitempty"`
	Duration   string             `json:"duration"`
}

// Generate 生成排班：运行全部策略并返回最优结果
func (h *RosterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := h.decode(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.Persist && req.Unit == "" {
		respondError(w, apperrors.InvalidInput("unit", "保存排班时不能为空"))
		return
	}
	in, unit, err := h.resolveInput(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	runner := h.runner(req.Strategies)

	timeout := h.cfg.Timeout
	if req.TimeoutSec > 0 {
		timeout = time.Duration(req.TimeoutSec) * time.Second
	}
	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := runner.Run(ctx, in)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := GenerateResponse{
		RunID:      report.RunID,
		Strategies: summarize(report),
		Duration:   report.Elapsed.String(),
	}
	best := report.Best()
	if best == nil {
		resp.Message = "全部策略均失败"
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	resp.Success = true
	resp.Best = best.Strategy
	resp.Grid = best.Grid
	resp.Metrics = best.Metrics
	resp.Audit = audit(in, best.Grid)
	if best.GapCount > 0 {
		resp.Message = "存在未满足的人力需求"
	}

	if req.Persist {
		if h.store == nil {
			respondError(w, apperrors.New(apperrors.CodeInvalidInput, "未启用存储，无法保存排班"))
			return
		}
		roster, err := h.store.SaveResult(r.Context(), unit, in, report.RunID, string(best.Strategy), best.Grid, best.GapCount, best.Percent)
		if err != nil {
			respondError(w, apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存排班失败"))
			return
		}
		resp.RosterID = &roster.ID
	}

	respondJSON(w, http.StatusOK, resp)
}

// resolveInput 规范化请求中的输入，或从存储读取
func (h *RosterHandler) resolveInput(ctx context.Context, req *GenerateRequest) (*model.Input, string, error) {
	if req.Input != nil {
		in, err := normalize.NormalizeWith(req.Input, h.cfg.Rules())
		return in, req.Unit, err
	}

	ve := &apperrors.ValidationErrors{}
	if req.Unit == "" {
		ve.Add("unit", "未提供输入时病区不能为空")
	}
	if req.Year < 2000 {
		ve.Add("year", "年份无效")
	}
	if req.Month < 1 || req.Month > 12 {
		ve.Add("month", "月份无效")
	}
	if ve.HasErrors() {
		return nil, "", ve.ToAppError()
	}
	if h.store == nil {
		return nil, "", apperrors.New(apperrors.CodeInvalidInput, "未启用存储，必须提供 input")
	}

	in, err := h.store.LoadInput(ctx, req.Unit, req.Year, req.Month)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", apperrors.NotFound("unit", req.Unit)
		}
		return nil, "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取排班输入失败")
	}
	return in, req.Unit, nil
}

// runner 按配置与请求构建批量运行器
func (h *RosterHandler) runner(names []string) *batch.Runner {
	if len(names) == 0 {
		names = h.cfg.Strategies
	}
	r := batch.NewRunner()
	if len(names) > 0 {
		r.Strategies = make([]solver.Tag, len(names))
		for i, n := range names {
			r.Strategies[i] = solver.Tag(n)
		}
	}
	if h.cfg.Workers > 0 {
		r.Workers = h.cfg.Workers
	}
	r.Scorer = h.scorer
	r.Observer = h.observer
	return r
}

func summarize(report *batch.Report) []StrategyOutput {
	out := make([]StrategyOutput, len(report.Results))
	for i, res := range report.Results {
		o := StrategyOutput{
			Strategy: res.Strategy,
			Policy:   res.Policy,
			Duration: res.Duration.String(),
			Error:    res.Error(),
		}
		if !res.Failed() {
			o.GapCount = res.GapCount
			o.Percent = res.Percent
		} else {
			o.GapCount = -1
		}
		out[i] = o
	}
	return out
}

// GridRequest 评分与校验请求
type GridRequest struct {
	Input *normalize.RawInput `json:"input"`
	Grid  model.Grid          `json:"grid"`
}

// ScoreResponse 评分响应
type ScoreResponse struct {
	Metrics  *stats.Metrics         `json:"metrics"`
	Fairness *stats.FairnessMetrics `json:"fairness"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
}

// Score 对给定排班表评分
func (h *RosterHandler) Score(w http.ResponseWriter, r *http.Request) {
	in, grid, err := h.decodeGrid(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ScoreResponse{
		Metrics:  h.scorer.Score(in, grid),
		Fairness: stats.Fairness(in, grid),
		Coverage: stats.Coverage(in, grid),
	})
}

// Validate 校验排班表是否满足全部硬约束
func (h *RosterHandler) Validate(w http.ResponseWriter, r *http.Request) {
	in, grid, err := h.decodeGrid(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	result := audit(in, grid)
	for _, v := range result.HardViolations {
		logger.Debug().Str("constraint", string(v.ConstraintType)).Str("uid", v.UID).Int("day", v.Day).Msg(v.Message)
	}
	respondJSON(w, http.StatusOK, result)
}

// Get 读取已保存的排班表
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "未启用存储"))
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的排班ID格式"))
		return
	}
	roster, grid, err := h.store.LoadRoster(r.Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			respondError(w, apperrors.NotFound("roster", id.String()))
			return
		}
		respondError(w, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取排班失败"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roster": roster,
		"grid":   grid,
	})
}

// List 分页列出已保存的排班表
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "未启用存储"))
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	rosters, total, err := h.store.ListRosters(r.Context(), filter)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班列表失败"))
		return
	}
	if rosters == nil {
		rosters = []*repository.Roster{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rosters": rosters,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// Latest 读取某病区某月最近生成的排班表
func (h *RosterHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "未启用存储"))
		return
	}
	q := r.URL.Query()
	unit := q.Get("unit")
	year, _ := strconv.Atoi(q.Get("year"))
	month, _ := strconv.Atoi(q.Get("month"))

	ve := &apperrors.ValidationErrors{}
	if unit == "" {
		ve.Add("unit", "不能为空")
	}
	if year < 2000 {
		ve.Add("year", "年份无效")
	}
	if month < 1 || month > 12 {
		ve.Add("month", "月份无效")
	}
	if ve.HasErrors() {
		respondError(w, ve.ToAppError())
		return
	}

	roster, err := h.store.LatestRoster(r.Context(), unit, year, month)
	if err != nil {
		if repository.IsNotFound(err) {
			respondError(w, apperrors.NotFound("roster", unit))
			return
		}
		respondError(w, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取排班失败"))
		return
	}
	respondJSON(w, http.StatusOK, roster)
}

// Publish 发布排班表
func (h *RosterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "未启用存储"))
		return
	}
	h.byID(w, r, "发布排班失败", h.store.PublishRoster)
}

// Delete 删除排班表
func (h *RosterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "未启用存储"))
		return
	}
	h.byID(w, r, "删除排班失败", h.store.DeleteRoster)
}

// byID 解析路径中的排班ID并执行 op
func (h *RosterHandler) byID(w http.ResponseWriter, r *http.Request, failure string, op func(context.Context, uuid.UUID) error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的排班ID格式"))
		return
	}
	if err := op(r.Context(), id); err != nil {
		if repository.IsNotFound(err) {
			respondError(w, apperrors.NotFound("roster", id.String()))
			return
		}
		respondError(w, apperrors.Wrap(err, apperrors.CodeDatabaseError, failure))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "success": true})
}

// ImportUnit 规范化请求中的输入，保存为病区的班别、规则与员工
func (h *RosterHandler) ImportUnit(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, apperrors.New(apperrors.CodeNotFound, "未启用存储"))
		return
	}
	unit := r.PathValue("unit")
	var raw normalize.RawInput
	if err := h.decode(w, r, &raw); err != nil {
		respondError(w, err)
		return
	}
	in, err := normalize.NormalizeWith(&raw, h.cfg.Rules())
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.store.ImportUnit(r.Context(), unit, in); err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存病区失败"))
		return
	}
	logger.Info().Str("unit", unit).Int("staff", len(in.Staff)).Int("shifts", len(in.Rules.Shifts.Types)).Msg("病区已导入")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"unit":   unit,
		"staff":  len(in.Staff),
		"shifts": len(in.Rules.Shifts.Types),
	})
}

// 列表分页上限
const maxListLimit = 100

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter().WithUnit(q.Get("unit"))
	filter.Status = q.Get("status")

	ve := &apperrors.ValidationErrors{}
	num := func(key string) int {
		v := q.Get(key)
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			ve.Add(key, "必须为非负整数")
			return 0
		}
		return n
	}
	year, month := num("year"), num("month")
	if month > 12 {
		ve.Add("month", "月份无效")
	}
	filter = filter.WithMonth(year, month)
	if limit := num("limit"); limit > 0 {
		filter = filter.WithLimit(min(limit, maxListLimit))
	}
	filter = filter.WithOffset(num("offset"))
	if ve.HasErrors() {
		return filter, ve.ToAppError()
	}
	return filter, nil
}

// Rules 返回支持的约束与调参项
func (h *RosterHandler) Rules(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{
		Library: constraints.GetLibrary(),
		Knobs:   constraints.GetKnobs(),
	})
}

func audit(in *model.Input, grid model.Grid) *constraint.Result {
	manager := builtin.NewRosterManager(&in.Rules)
	return manager.Evaluate(constraint.NewContext(in, grid))
}

func (h *RosterHandler) decodeGrid(w http.ResponseWriter, r *http.Request) (*model.Input, model.Grid, error) {
	var req GridRequest
	if err := h.decode(w, r, &req); err != nil {
		return nil, nil, err
	}
	if req.Input == nil {
		return nil, nil, apperrors.InvalidInput("input", "不能为空")
	}
	if req.Grid == nil {
		return nil, nil, apperrors.InvalidInput("grid", "不能为空")
	}
	in, err := normalize.NormalizeWith(req.Input, h.cfg.Rules())
	if err != nil {
		return nil, nil, err
	}
	return in, req.Grid, nil
}

func (h *RosterHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.New(apperrors.CodeInvalidInput, "请求体过大")
		}
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "内部错误")
	}
	body := map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	respondJSON(w, apperrors.GetHTTPStatus(appErr), body)
}
