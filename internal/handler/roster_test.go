package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalize"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

func rawInput() *normalize.RawInput {
	return &normalize.RawInput{
		Year:  2026,
		Month: 2,
		Shifts: []normalize.RawShift{
			{Code: "D", Name: "白班", Start: "08:00", End: "16:00"},
		},
		Staff: []normalize.RawStaff{
			{UID: "a", Name: "甲"},
			{UID: "b", Name: "乙"},
			{UID: "c", Name: "丙", RequestedOff: []int{14}},
		},
		Demand: normalize.RawDemand{Base: map[string]int{"D": 1}},
	}
}

// offGrid 全部休息的排班表
func offGrid(uids ...string) model.Grid {
	g := model.Grid{}
	for _, uid := range uids {
		g[uid] = map[int]string{}
		for d := 1; d <= 28; d++ {
			g[uid][d] = model.CodeOff
		}
	}
	return g
}

type fakeStore struct {
	saved   map[uuid.UUID]model.Grid
	rosters []*repository.Roster
	lastRun uuid.UUID
	unit    string
	filter  repository.ListFilter
	units   map[string]*model.Input
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[uuid.UUID]model.Grid{}}
}

func (f *fakeStore) LoadInput(_ context.Context, unit string, _, _ int) (*model.Input, error) {
	if unit != "icu" {
		return nil, repository.ErrNotFound
	}
	return normalize.Normalize(rawInput())
}

func (f *fakeStore) SaveResult(_ context.Context, unit string, _ *model.Input, runID uuid.UUID, _ string, grid model.Grid, _ int, _ float64) (*repository.Roster, error) {
	id := uuid.New()
	f.saved[id] = grid
	f.lastRun = runID
	f.unit = unit
	ro := &repository.Roster{ID: id, RunID: runID, Unit: unit, Status: repository.StatusDraft}
	f.rosters = append(f.rosters, ro)
	return ro, nil
}

func (f *fakeStore) LoadRoster(_ context.Context, id uuid.UUID) (*repository.Roster, model.Grid, error) {
	grid, ok := f.saved[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	return &repository.Roster{ID: id, Unit: f.unit}, grid, nil
}

func (f *fakeStore) ListRosters(_ context.Context, filter repository.ListFilter) ([]*repository.Roster, int, error) {
	f.filter = filter
	var out []*repository.Roster
	for _, ro := range f.rosters {
		if filter.Unit != "" && ro.Unit != filter.Unit {
			continue
		}
		if filter.Status != "" && ro.Status != filter.Status {
			continue
		}
		out = append(out, ro)
	}
	return out, len(out), nil
}

func (f *fakeStore) LatestRoster(_ context.Context, unit string, _, _ int) (*repository.Roster, error) {
	for i := len(f.rosters) - 1; i >= 0; i-- {
		if f.rosters[i].Unit == unit {
			return f.rosters[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) PublishRoster(_ context.Context, id uuid.UUID) error {
	for _, ro := range f.rosters {
		if ro.ID == id {
			ro.Status = repository.StatusPublished
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) ImportUnit(_ context.Context, unit string, in *model.Input) error {
	if f.units == nil {
		f.units = map[string]*model.Input{}
	}
	f.units[unit] = in
	return nil
}

func (f *fakeStore) DeleteRoster(_ context.Context, id uuid.UUID) error {
	for i, ro := range f.rosters {
		if ro.ID == id {
			f.rosters = append(f.rosters[:i], f.rosters[i+1:]...)
			delete(f.saved, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func newServer(opts ...Option) *http.ServeMux {
	mux := http.NewServeMux()
	NewRosterHandler(config.SchedulerConfig{Strategies: []string{"v1", "v3"}}, opts...).Register(mux)
	return mux
}

func post(t *testing.T, mux http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data)))
	return rec
}

func TestGenerate(t *testing.T) {
	reg := metrics.NewRegistry()
	mux := newServer(WithObserver(metrics.NewRunObserver(reg)))

	rec := post(t, mux, "/api/v1/roster/generate", GenerateRequest{Input: rawInput()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEqual(t, uuid.Nil, resp.RunID)
	assert.Len(t, resp.Strategies, 2)
	assert.Len(t, resp.Grid, 3)
	assert.Equal(t, model.CodeReqOff, resp.Grid["c"][14])
	require.NotNil(t, resp.Audit)
	assert.True(t, resp.Audit.IsValid)
	assert.Nil(t, resp.RosterID)

	assert.Equal(t, 1.0, reg.Counter(metrics.StrategyRunsTotal).Value("v1", "success"))
	assert.Equal(t, 1.0, reg.Counter(metrics.StrategyRunsTotal).Value("v3", "success"))
	assert.Equal(t, 1.0, reg.Counter(metrics.BatchRunsTotal).Value("success"))

	policies := map[string]string{}
	for _, s := range resp.Strategies {
		policies[string(s.Strategy)] = s.Policy
	}
	assert.Equal(t, "permissive", policies["v1"])
	assert.Equal(t, "strict", policies["v3"])
}

func TestGenerate_ConfigDefaults(t *testing.T) {
	raw := rawInput()
	mux := http.NewServeMux()
	NewRosterHandler(config.SchedulerConfig{Strategies: []string{"v3"}, MaxRepairSteps: 7}).Register(mux)

	// 配置项作为默认值，请求中显式给出的 0 保留
	zero := 0
	raw.Rules.MinRestHours = &zero
	rec := post(t, mux, "/api/v1/roster/generate", GenerateRequest{Input: raw})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	h := NewRosterHandler(config.SchedulerConfig{MaxRepairSteps: 7})
	in, _, err := h.resolveInput(context.Background(), &GenerateRequest{Input: raw})
	require.NoError(t, err)
	assert.Equal(t, 7, in.Rules.MaxRepairSteps)
	assert.Equal(t, 0, in.Rules.MinRestHours)
}

func TestRosterLifecycle(t *testing.T) {
	store := newFakeStore()
	mux := newServer(WithStore(store))

	rec := post(t, mux, "/api/v1/roster/generate", GenerateRequest{
		Unit: "icu", Year: 2026, Month: 2, Persist: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.RosterID)
	id := resp.RosterID.String()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	list := get("/api/v1/rosters?unit=icu&year=2026&month=2&limit=500&offset=0")
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	var listed struct {
		Rosters []repository.Roster `json:"rosters"`
		Total   int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Total)
	assert.Equal(t, 100, store.filter.Limit)
	assert.Equal(t, 2026, store.filter.Year)
	assert.Equal(t, 2, store.filter.Month)

	assert.Equal(t, http.StatusBadRequest, get("/api/v1/rosters?month=13").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/rosters?limit=x").Code)

	latest := get("/api/v1/roster/latest?unit=icu&year=2026&month=2")
	require.Equal(t, http.StatusOK, latest.Code, latest.Body.String())
	assert.Contains(t, latest.Body.String(), id)
	assert.Equal(t, http.StatusNotFound, get("/api/v1/roster/latest?unit=er&year=2026&month=2").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/roster/latest?unit=icu").Code)

	rec = post(t, mux, "/api/v1/roster/"+id+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := get("/api/v1/rosters?status=published")
	require.NoError(t, json.Unmarshal(published.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Total)

	del := httptest.NewRecorder()
	mux.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/v1/roster/"+id, nil))
	require.Equal(t, http.StatusOK, del.Code)

	del = httptest.NewRecorder()
	mux.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/v1/roster/"+id, nil))
	assert.Equal(t, http.StatusNotFound, del.Code)
	assert.Equal(t, http.StatusNotFound, post(t, mux, "/api/v1/roster/"+id+"/publish", nil).Code)
	assert.Equal(t, http.StatusNotFound, get("/api/v1/roster/"+id).Code)
}

func TestRosterRoutes_WithoutStore(t *testing.T) {
	mux := newServer()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rosters", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, mux, "/api/v1/roster/"+uuid.NewString()+"/publish", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerate_ValidationFailure(t *testing.T) {
	raw := rawInput()
	raw.Staff[1].UID = ""

	rec := post(t, newServer(), "/api/v1/roster/generate", GenerateRequest{Input: raw})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "staff[1].uid")
}

func TestGenerate_AllStrategiesFail(t *testing.T) {
	rec := post(t, newServer(), "/api/v1/roster/generate", GenerateRequest{
		Input:      rawInput(),
		Strategies: []string{"v9"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.Strategies, 1)
	assert.Equal(t, -1, resp.Strategies[0].GapCount)
	assert.NotEmpty(t, resp.Strategies[0].Error)
}

func TestGenerate_PersistAndGet(t *testing.T) {
	store := newFakeStore()
	mux := newServer(WithStore(store))

	rec := post(t, mux, "/api/v1/roster/generate", GenerateRequest{
		Unit: "icu", Year: 2026, Month: 2, Persist: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.RosterID)
	assert.Equal(t, resp.RunID, store.lastRun)
	assert.Equal(t, "icu", store.unit)

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/roster/"+resp.RosterID.String(), nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Contains(t, get.Body.String(), `"grid"`)

	missing := httptest.NewRecorder()
	mux.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/roster/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)

	bad := httptest.NewRecorder()
	mux.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/api/v1/roster/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestGenerate_StoreErrors(t *testing.T) {
	// 未启用存储
	rec := post(t, newServer(), "/api/v1/roster/generate", GenerateRequest{Unit: "icu", Year: 2026, Month: 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 保存时缺少病区
	rec = post(t, newServer(WithStore(newFakeStore())), "/api/v1/roster/generate", GenerateRequest{Input: rawInput(), Persist: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 病区不存在
	rec = post(t, newServer(WithStore(newFakeStore())), "/api/v1/roster/generate", GenerateRequest{Unit: "er", Year: 2026, Month: 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 缺少年月
	rec = post(t, newServer(WithStore(newFakeStore())), "/api/v1/roster/generate", GenerateRequest{Unit: "icu"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecode_RejectsUnknownFieldsAndLargeBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/roster/generate",
		bytes.NewBufferString(`{"input": null, "bogus": 1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mux := http.NewServeMux()
	NewRosterHandler(config.SchedulerConfig{}, WithMaxBodyBytes(16)).Register(mux)
	rec = post(t, mux, "/api/v1/roster/generate", GenerateRequest{Input: rawInput()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "请求体过大")
}

func TestScore(t *testing.T) {
	rec := post(t, newServer(), "/api/v1/roster/score", GridRequest{
		Input: rawInput(),
		Grid:  offGrid("a", "b", "c"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Metrics struct {
			GapCount int `json:"gap_count"`
		} `json:"metrics"`
		Coverage struct {
			GapCount int `json:"gap_count"`
		} `json:"coverage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 28, resp.Metrics.GapCount)
	assert.Equal(t, 28, resp.Coverage.GapCount)

	rec = post(t, newServer(), "/api/v1/roster/score", GridRequest{Input: rawInput()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidate(t *testing.T) {
	grid := offGrid("a", "b", "c")
	for d := 1; d <= 7; d++ {
		grid["a"][d] = "D"
	}

	rec := post(t, newServer(), "/api/v1/roster/validate", GridRequest{Input: rawInput(), Grid: grid})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result constraint.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsValid)

	types := map[constraint.Type]bool{}
	for _, v := range result.HardViolations {
		types[v.ConstraintType] = true
	}
	assert.True(t, types[constraint.TypeMaxConsecutiveDays])
}

func TestRules(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/roster/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_consecutive_days"`)
}

func TestImportUnit(t *testing.T) {
	store := newFakeStore()
	mux := http.NewServeMux()
	NewRosterHandler(config.SchedulerConfig{BacktrackDepth: 5}, WithStore(store)).Register(mux)

	put := func(body interface{}) *httptest.ResponseRecorder {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/units/icu", bytes.NewReader(data)))
		return rec
	}

	rec := put(rawInput())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	in := store.units["icu"]
	require.NotNil(t, in)
	assert.Len(t, in.Staff, 3)
	assert.Equal(t, 5, in.Rules.BacktrackDepth)
	assert.NotNil(t, in.Rules.Shifts.Get("D"))

	bad := rawInput()
	bad.Shifts = nil
	rec = put(bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
