// Package repository 提供排班数据的 PostgreSQL 存储
package repository

import (
	"context"
	"errors"

	"github.com/paiban/roster/internal/database"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// ListFilter 列表查询过滤器
type ListFilter struct {
	Unit   string `json:"unit,omitempty"`
	Year   int    `json:"year,omitempty"`
	Month  int    `json:"month,omitempty"`
	Status string `json:"status,omitempty"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{Offset: 0, Limit: 20}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithUnit 设置病区
func (f ListFilter) WithUnit(unit string) ListFilter {
	f.Unit = unit
	return f
}

// WithMonth 设置年月
func (f ListFilter) WithMonth(year, month int) ListFilter {
	f.Year = year
	f.Month = month
	return f
}

// DB 仓储使用的数据库，写入多张表时在 Transaction 中进行
type DB interface {
	database.Querier
	Transaction(ctx context.Context, fn func(q database.Querier) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
