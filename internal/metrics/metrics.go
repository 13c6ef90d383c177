// Package metrics 提供Prometheus文本格式的运行指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 标签值分隔符（不会出现在正常标签值中）
const labelSep = "\xff"

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

// 指标名称
const (
	HTTPRequestsTotal   = "roster_http_requests_total"
	HTTPRequestDuration = "roster_http_request_duration_seconds"
	StrategyRunsTotal   = "roster_strategy_runs_total"
	StrategyDuration    = "roster_strategy_duration_seconds"
	StrategyGap         = "roster_strategy_gap_count"
	StrategyPercent     = "roster_strategy_quality_percent"
	BatchRunsTotal      = "roster_batch_runs_total"
	DBConnections       = "roster_db_connections"
	DBQueriesTotal      = "roster_db_queries_total"
)

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default 获取进程级注册表
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry 创建注册表并登记排班服务的默认指标
func NewRegistry() *Registry {
	r := &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}

	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30})

	// 策略级
	r.NewCounter(StrategyRunsTotal, "策略运行次数", []string{"strategy", "status"})
	r.NewHistogram(StrategyDuration, "策略运行耗时",
		[]string{"strategy"},
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60})
	r.NewGauge(StrategyGap, "最近一次运行的缺口数", []string{"strategy"})
	r.NewGauge(StrategyPercent, "最近一次运行的质量百分比", []string{"strategy"})

	r.NewCounter(BatchRunsTotal, "批量运行次数", []string{"status"})
	r.NewGauge(DBConnections, "数据库连接数", []string{"state"})
	r.NewCounter(DBQueriesTotal, "数据库语句数", []string{"op", "status"})
	return r
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.counters[name] = c
	return c
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.gauges[name] = g
	return g
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = h
	return h
}

// Counter 获取计数器
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Gauge 获取仪表盘
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// Histogram 获取直方图
func (r *Registry) Histogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 返回某组标签的当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Value 返回某组标签的当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, ok := h.counts[key]; !ok {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}
	// 每个观测只落入第一个满足的桶，输出时再累加
	idx := sort.SearchFloat64s(h.Buckets, value)
	h.counts[key][idx]++
	h.sums[key] += value
}

// Count 返回某组标签的观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, n := range h.counts[labelKey(labelValues)] {
		total += n
	}
	return total
}

func labelKey(values []string) string {
	return strings.Join(values, labelSep)
}

// WriteTo 以Prometheus文本格式输出全部指标（按名称与标签排序）
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		writeHeader(&b, c.Name, c.Help, "counter")
		c.mu.RLock()
		for _, key := range sortedKeys(c.values) {
			fmt.Fprintf(&b, "%s%s %s\n", c.Name, formatLabels(c.Labels, key, ""), formatValue(c.values[key]))
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		writeHeader(&b, g.Name, g.Help, "gauge")
		g.mu.RLock()
		for _, key := range sortedKeys(g.values) {
			fmt.Fprintf(&b, "%s%s %s\n", g.Name, formatLabels(g.Labels, key, ""), formatValue(g.values[key]))
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		h := r.histograms[name]
		writeHeader(&b, h.Name, h.Help, "histogram")
		h.mu.RLock()
		for _, key := range sortedKeys(h.counts) {
			counts := h.counts[key]
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				le := `le="` + formatValue(bucket) + `"`
				fmt.Fprintf(&b, "%s_bucket%s %d\n", h.Name, formatLabels(h.Labels, key, le), cumulative)
			}
			cumulative += counts[len(h.Buckets)]
			fmt.Fprintf(&b, "%s_bucket%s %d\n", h.Name, formatLabels(h.Labels, key, `le="+Inf"`), cumulative)
			fmt.Fprintf(&b, "%s_sum%s %s\n", h.Name, formatLabels(h.Labels, key, ""), formatValue(h.sums[key]))
			fmt.Fprintf(&b, "%s_count%s %d\n", h.Name, formatLabels(h.Labels, key, ""), cumulative)
		}
		h.mu.RUnlock()
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = r.WriteTo(w)
	})
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

// formatLabels 格式化标签，extra 追加在末尾（如 le）
func formatLabels(names []string, key, extra string) string {
	var parts []string
	if len(names) > 0 {
		vals := strings.Split(key, labelSep)
		for i, name := range names {
			val := ""
			if i < len(vals) {
				val = vals[i]
			}
			parts = append(parts, name+"="+strconv.Quote(val))
		}
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordRequest 记录请求指标
func (r *Registry) RecordRequest(method, path string, status int, duration time.Duration) {
	if c := r.Counter(HTTPRequestsTotal); c != nil {
		c.Inc(method, path, strconv.Itoa(status))
	}
	if h := r.Histogram(HTTPRequestDuration); h != nil {
		h.Observe(duration.Seconds(), method, path)
	}
}

// RecordBatch 记录一次批量运行
func (r *Registry) RecordBatch(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	if c := r.Counter(BatchRunsTotal); c != nil {
		c.Inc(status)
	}
}

// SetDBConnections 记录连接池状态
func (r *Registry) SetDBConnections(open, inUse, idle int) {
	g := r.Gauge(DBConnections)
	if g == nil {
		return
	}
	g.Set(float64(open), "open")
	g.Set(float64(inUse), "in_use")
	g.Set(float64(idle), "idle")
}

// RecordQuery 记录一次数据库语句，status 为 ok/slow/error
func (r *Registry) RecordQuery(op, status string) {
	if c := r.Counter(DBQueriesTotal); c != nil {
		c.Inc(op, status)
	}
}

// RunObserver 将批量运行中每个策略的结果写入注册表
type RunObserver struct {
	Registry *Registry
}

// NewRunObserver 创建策略结果观察者
func NewRunObserver(r *Registry) *RunObserver {
	if r == nil {
		r = Default()
	}
	return &RunObserver{Registry: r}
}

// ObserveStrategy 记录单个策略的耗时、缺口与质量
func (o *RunObserver) ObserveStrategy(strategy string, duration time.Duration, gap int, percent float64, failed bool) {
	status := "success"
	if failed {
		status = "failure"
	}
	o.Registry.Counter(StrategyRunsTotal).Inc(strategy, status)
	o.Registry.Histogram(StrategyDuration).Observe(duration.Seconds(), strategy)
	if failed {
		return
	}
	o.Registry.Gauge(StrategyGap).Set(float64(gap), strategy)
	o.Registry.Gauge(StrategyPercent).Set(percent, strategy)
}

// ObserveBatch 记录一次批量运行
func (o *RunObserver) ObserveBatch(success bool) {
	o.Registry.RecordBatch(success)
}
