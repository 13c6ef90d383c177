package model

// Grid 排班表：员工 -> 日序号 -> 班别代码或休息哨兵
type Grid map[string]map[int]string

// Get 获取单元格，不存在返回空串
func (g Grid) Get(uid string, day int) string {
	return g[uid][day]
}

// Clone 深拷贝
func (g Grid) Clone() Grid {
	cp := make(Grid, len(g))
	for uid, row := range g {
		r := make(map[int]string, len(row))
		for day, code := range row {
			r[day] = code
		}
		cp[uid] = r
	}
	return cp
}

// Equal 比较两张排班表
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for uid, row := range g {
		o, ok := other[uid]
		if !ok || len(o) != len(row) {
			return false
		}
		for day, code := range row {
			if o[day] != code {
				return false
			}
		}
	}
	return true
}

// Tail 上月末尾班别，最后一个元素为上月最后一天
type Tail map[string][]string

// Clone 深拷贝
func (t Tail) Clone() Tail {
	if t == nil {
		return nil
	}
	cp := make(Tail, len(t))
	for uid, codes := range t {
		cp[uid] = append([]string(nil), codes...)
	}
	return cp
}

// Counters 单个员工的计数
type Counters struct {
	Shifts map[string]int `json:"shifts"`
	Off    int            `json:"off"` // OFF + REQ_OFF
	Work   int            `json:"work"`
}

// NewCounters 创建计数器
func NewCounters() *Counters {
	return &Counters{Shifts: make(map[string]int)}
}

// Add 计入一个单元格
func (c *Counters) Add(code string) {
	c.apply(code, 1)
}

// Remove 移除一个单元格
func (c *Counters) Remove(code string) {
	c.apply(code, -1)
}

func (c *Counters) apply(code string, delta int) {
	switch {
	case IsRest(code):
		c.Off += delta
	case code != "":
		c.Shifts[code] += delta
		if c.Shifts[code] == 0 {
			delete(c.Shifts, code)
		}
		c.Work += delta
	}
}

// Count 返回某班别的次数
func (c *Counters) Count(code string) int {
	return c.Shifts[code]
}

// CountRow 重新统计一行
func CountRow(row map[int]string) *Counters {
	c := NewCounters()
	for _, code := range row {
		c.Add(code)
	}
	return c
}
