package normalize

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// 错误路径使用 json 字段名，例如 staff[3].uid
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := model.ParseClock(fl.Field().String())
		return err == nil
	})
}

// Normalize 校验原始输入并转换为引擎输入，未填写的规则参数取 model.DefaultRules
// 所有问题一次性收集，返回的 VALIDATION_FAILED 错误按字段路径列出每条出错记录
func Normalize(raw *RawInput) (*model.Input, error) {
	return NormalizeWith(raw, model.DefaultRules())
}

// NormalizeWith 同 Normalize，未填写的规则参数取 defaults（如服务配置的引擎参数）
func NormalizeWith(raw *RawInput, defaults model.Rules) (*model.Input, error) {
	if raw == nil {
		return nil, apperrors.InvalidInput("input", "不能为空")
	}

	errs := &apperrors.ValidationErrors{}
	if err := validate.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "校验器配置错误")
		}
		for _, fe := range fieldErrs {
			errs.Add(fieldPath(fe.Namespace()), describe(fe))
		}
		return nil, errs.ToAppError()
	}

	defaults = defaults.Clone()
	defaults.ApplyDefaults()
	b := &builder{raw: raw, errs: errs, month: time.Month(raw.Month), defaults: defaults}
	in := b.build()
	if errs.HasErrors() {
		return nil, errs.ToAppError()
	}

	logger.Debug().
		Int("year", in.Year).
		Int("month", int(in.Month)).
		Int("staff", len(in.Staff)).
		Int("shifts", len(in.Rules.Shifts.Types)).
		Msg("输入规范化完成")
	return in, nil
}

// fieldPath 去掉根类型名：RawInput.staff[3].uid -> staff[3].uid
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必填"
	case "clock":
		return "时间格式应为 HH:MM"
	case "datetime":
		return "日期格式应为 " + fe.Param()
	case "min":
		return "不能小于 " + fe.Param()
	case "max":
		return "不能大于 " + fe.Param()
	case "oneof":
		return "取值应为 " + fe.Param()
	default:
		return "校验失败: " + fe.Tag()
	}
}

// builder 逐条转换记录并收集语义错误
type builder struct {
	raw      *RawInput
	errs     *apperrors.ValidationErrors
	month    time.Month
	days     int
	catalog  model.ShiftCatalog
	defaults model.Rules
}

func (b *builder) fail(field, format string, args ...interface{}) {
	b.errs.Add(field, fmt.Sprintf(format, args...))
}

func (b *builder) build() *model.Input {
	b.days = model.DaysIn(b.raw.Year, b.month)
	b.catalog = b.shifts()

	in := &model.Input{
		Year:  b.raw.Year,
		Month: b.month,
		Staff: b.staff(),
	}
	in.Tail = b.tail(in)
	in.Rules = b.rules()
	in.Rules.Shifts = b.catalog
	in.Rules.Demand = b.demand()
	return in
}

func (b *builder) shifts() model.ShiftCatalog {
	seen := make(map[string]bool, len(b.raw.Shifts))
	types := make([]*model.ShiftType, 0, len(b.raw.Shifts))
	for i, rs := range b.raw.Shifts {
		field := fmt.Sprintf("shifts[%d]", i)
		code := strings.TrimSpace(rs.Code)
		if model.IsRest(code) {
			b.fail(field+".code", "%s 为保留的休息代码", code)
			continue
		}
		if seen[code] {
			b.fail(field+".code", "重复的班别代码 %s", code)
			continue
		}
		seen[code] = true

		st := &model.ShiftType{
			Code:            code,
			Name:            rs.Name,
			StartTime:       rs.Start,
			EndTime:         rs.End,
			DurationMinutes: rs.Duration,
			IsNight:         rs.Night,
			IsEvening:       rs.Evening,
		}
		if err := st.Prepare(); err != nil {
			b.fail(field, "%v", err)
			continue
		}
		types = append(types, st)
	}
	return model.NewShiftCatalog(types)
}

// knownCode 班别代码或休息哨兵
func (b *builder) knownCode(code string) bool {
	return model.IsRest(code) || b.catalog.Get(code) != nil
}

func (b *builder) staff() []*model.Staff {
	seen := make(map[string]bool, len(b.raw.Staff))
	out := make([]*model.Staff, 0, len(b.raw.Staff))
	for i, rs := range b.raw.Staff {
		field := fmt.Sprintf("staff[%d]", i)
		uid := strings.TrimSpace(rs.UID)
		if seen[uid] {
			b.fail(field+".uid", "重复的员工 uid %s", uid)
			continue
		}
		seen[uid] = true

		s := &model.Staff{
			UID:           uid,
			Name:          strings.TrimSpace(rs.Name),
			Package:       strings.TrimSpace(rs.Package),
			Group:         rs.Group,
			Support:       rs.Support,
			Pregnant:      rs.Pregnant,
			Breastfeeding: rs.Breastfeeding,
		}
		s.PregnantUntil = parseDate(rs.PregnantUntil)
		s.BreastfeedingUntil = parseDate(rs.BreastfeedingUntil)

		if s.Package != "" && b.catalog.Get(s.Package) == nil {
			// 未知包班按无包班处理
			logger.Warn().Str("uid", uid).Str("package", s.Package).Msg("包班班别不在目录中")
		}

		if len(rs.Preferences) > 0 {
			s.Preferences = make(map[int][]string, len(rs.Preferences))
			for day, prefs := range rs.Preferences {
				pf := fmt.Sprintf("%s.preferences[%d]", field, day)
				if day < 1 || day > b.days {
					b.fail(pf, "日期超出当月范围 1-%d", b.days)
					continue
				}
				for _, code := range prefs {
					if code != "" && !b.knownCode(code) {
						b.fail(pf, "未知的班别代码 %s", code)
					}
				}
				s.Preferences[day] = append([]string(nil), prefs...)
			}
		}

		for j, day := range rs.RequestedOff {
			if day > b.days {
				b.fail(fmt.Sprintf("%s.requested_off[%d]", field, j), "日期超出当月范围 1-%d", b.days)
				continue
			}
			s.RequestedOff = append(s.RequestedOff, day)
		}
		out = append(out, s)
	}
	return out
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// 格式已由校验器保证
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func (b *builder) tail(in *model.Input) model.Tail {
	if len(b.raw.Tail) == 0 {
		return nil
	}
	tail := make(model.Tail, len(b.raw.Tail))
	for uid, codes := range b.raw.Tail {
		field := "tail." + uid
		if in.StaffByUID(uid) == nil {
			b.fail(field, "员工 %s 不存在", uid)
			continue
		}
		for _, code := range codes {
			if !b.knownCode(code) {
				b.fail(field, "未知的班别代码 %s", code)
			}
		}
		tail[uid] = append([]string(nil), codes...)
	}
	return tail
}

func (b *builder) rules() model.Rules {
	rr := b.raw.Rules
	r := b.defaults
	override(&r.MinRestHours, rr.MinRestHours)
	override(&r.MaxCategoriesPerWeek, rr.MaxCategoriesPerWeek)
	override(&r.MaxConsecutiveDays, rr.MaxConsecutiveDays)
	override(&r.RestWindowDays, rr.RestWindowDays)
	override(&r.MinRestPerWindow, rr.MinRestPerWindow)
	override(&r.Tolerance, rr.Tolerance)
	override(&r.BacktrackDepth, rr.BacktrackDepth)
	override(&r.MaxRepairSteps, rr.MaxRepairSteps)
	override(&r.MaxBalanceSwaps, rr.MaxBalanceSwaps)
	override(&r.MaxPreferenceRank, rr.MaxPreferenceRank)
	override(&r.FatigueRunDays, rr.FatigueRunDays)
	if len(rr.SupportGroups) > 0 {
		r.SupportGroups = append([]string(nil), rr.SupportGroups...)
	}
	if len(rr.Weights) > 0 {
		r.Weights = make(map[string]float64, len(rr.Weights))
		for k, v := range rr.Weights {
			r.Weights[k] = v
		}
	}
	if len(rr.Holidays) > 0 {
		r.Holidays = nil
	}
	for i, day := range rr.Holidays {
		if day > b.days {
			b.fail(fmt.Sprintf("rules.holidays[%d]", i), "日期超出当月范围 1-%d", b.days)
			continue
		}
		r.Holidays = append(r.Holidays, day)
	}
	return r
}

// override 显式填写的参数覆盖默认值（包括 0）
func override(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func (b *builder) demand() model.Demand {
	rd := b.raw.Demand
	d := model.Demand{DefaultDay: b.defaults.Demand.DefaultDay, DefaultOther: b.defaults.Demand.DefaultOther}
	override(&d.DefaultDay, rd.DefaultDay)
	override(&d.DefaultOther, rd.DefaultOther)

	if len(rd.Base) > 0 {
		d.Base = make(map[string]int, len(rd.Base))
		for code, n := range rd.Base {
			if b.catalog.Get(code) == nil {
				b.fail("demand.base."+code, "未知的班别代码 %s", code)
				continue
			}
			d.Base[code] = n
		}
	}

	if len(rd.Weekly) > 0 {
		d.Weekly = make(map[string]map[time.Weekday]int, len(rd.Weekly))
		for code, days := range rd.Weekly {
			field := "demand.weekly." + code
			if b.catalog.Get(code) == nil {
				b.fail(field, "未知的班别代码 %s", code)
				continue
			}
			m := make(map[time.Weekday]int, len(days))
			for name, n := range days {
				wd, ok := parseWeekday(name)
				if !ok {
					b.fail(field+"."+name, "无效的星期")
					continue
				}
				if n < 0 {
					b.fail(field+"."+name, "不能小于 0")
					continue
				}
				m[wd] = n
			}
			d.Weekly[code] = m
		}
	}

	for i, o := range rd.Overrides {
		field := fmt.Sprintf("demand.overrides[%d]", i)
		if b.catalog.Get(o.Shift) == nil {
			b.fail(field+".shift", "未知的班别代码 %s", o.Shift)
			continue
		}
		days, err := b.overrideDays(o)
		if err != nil {
			b.fail(field, "%v", err)
			continue
		}
		if d.Overrides == nil {
			d.Overrides = make(map[int]map[string]int)
		}
		// 后出现的覆盖先出现的
		for _, day := range days {
			if d.Overrides[day] == nil {
				d.Overrides[day] = make(map[string]int)
			}
			d.Overrides[day][o.Shift] = o.Count
		}
	}
	return d
}

func (b *builder) overrideDays(o RawOverride) ([]int, error) {
	switch {
	case o.Day == 0 && o.RRule == "":
		return nil, fmt.Errorf("day 与 rrule 必须指定其一")
	case o.Day != 0 && o.RRule != "":
		return nil, fmt.Errorf("day 与 rrule 只能指定其一")
	case o.Day != 0:
		if o.Day > b.days {
			return nil, fmt.Errorf("日期超出当月范围 1-%d", b.days)
		}
		return []int{o.Day}, nil
	}
	return ExpandRRule(o.RRule, b.raw.Year, b.month)
}

// ExpandRRule 展开 RRULE 在当月命中的日序号（升序）
// 规则未带 DTSTART 时以当月 1 日为起点
func ExpandRRule(expr string, year int, month time.Month) ([]int, error) {
	expr = strings.TrimPrefix(strings.TrimSpace(expr), "RRULE:")
	opt, err := rrule.StrToROption(expr)
	if err != nil {
		return nil, fmt.Errorf("无效的 rrule %q: %w", expr, err)
	}

	start := model.DateOf(year, month, 1)
	end := model.DateOf(year, month, model.DaysIn(year, month))
	if opt.Dtstart.IsZero() {
		opt.Dtstart = start
	}
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("无效的 rrule %q: %w", expr, err)
	}

	seen := make(map[int]bool)
	var days []int
	for _, t := range rule.Between(start, end, true) {
		if t.Year() != year || t.Month() != month || seen[t.Day()] {
			continue
		}
		seen[t.Day()] = true
		days = append(days, t.Day())
	}
	sort.Ints(days)
	return days, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}
