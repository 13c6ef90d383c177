// Package database 提供排班存储使用的 PostgreSQL 连接
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// Querier 可执行语句的连接或事务
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB 排班库连接
// 事务内外的语句都经过 observe：慢查询告警，并按 op/status 计数
type DB struct {
	conn *sql.DB
	slow time.Duration
	reg  *metrics.Registry
}

// Option 连接选项
type Option func(*DB)

// WithMetrics 语句计数与连接池指标写入 reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(db *DB) { db.reg = reg }
}

// New 打开连接池并确认可连通
func New(cfg *config.DatabaseConfig, opts ...Option) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := newDB(conn, cfg.SlowQuery, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Dur("slow_query", db.slow).
		Msg("排班库已连接")
	return db, nil
}

func newDB(conn *sql.DB, slow time.Duration, opts ...Option) *DB {
	if slow <= 0 {
		slow = 100 * time.Millisecond
	}
	db := &DB{conn: conn, slow: slow}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Close 关闭连接池
func (db *DB) Close() error {
	logger.Info().Msg("关闭排班库连接")
	return db.conn.Close()
}

// Health 检查连通性，并刷新连接池指标
func (db *DB) Health(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return err
	}
	if db.reg != nil {
		st := db.conn.Stats()
		db.reg.SetDBConnections(st.OpenConnections, st.InUse, st.Idle)
	}
	return nil
}

// Transaction 在一个事务中执行 fn，fn 出错或崩溃时回滚
func (db *DB) Transaction(ctx context.Context, fn func(q Querier) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		db.observe("begin", "", 0, err)
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txQuerier{tx: tx, db: db}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		db.observe("commit", "", 0, err)
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// ExecContext 执行写语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	db.observe("exec", query, time.Since(start), err)
	return res, err
}

// QueryContext 执行多行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	db.observe("query", query, time.Since(start), err)
	return rows, err
}

// QueryRowContext 执行单行查询，错误在 Scan 时返回
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, args...)
	db.observe("query_row", query, time.Since(start), row.Err())
	return row
}

// observe 记录一条语句的结果
func (db *DB) observe(op, query string, took time.Duration, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
		logger.Debug().Err(err).Str("op", op).Str("query", truncateQuery(query)).Msg("SQL 执行失败")
	case took > db.slow:
		status = "slow"
		logger.Warn().
			Str("op", op).
			Str("query", truncateQuery(query)).
			Dur("duration", took).
			Msg("慢SQL查询")
	}
	if db.reg != nil {
		db.reg.RecordQuery(op, status)
	}
}

// txQuerier 事务内的语句同样计入指标
type txQuerier struct {
	tx *sql.Tx
	db *DB
}

func (q txQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := q.tx.ExecContext(ctx, query, args...)
	q.db.observe("tx_exec", query, time.Since(start), err)
	return res, err
}

func (q txQuerier) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.tx.QueryContext(ctx, query, args...)
	q.db.observe("tx_query", query, time.Since(start), err)
	return rows, err
}

func (q txQuerier) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := q.tx.QueryRowContext(ctx, query, args...)
	q.db.observe("tx_query_row", query, time.Since(start), row.Err())
	return row
}

// truncateQuery 压缩空白并截断过长的语句
func truncateQuery(query string) string {
	const limit = 200
	out := make([]byte, 0, min(len(query), limit))
	space := false
	i := 0
	for ; i < len(query) && len(out) < limit; i++ {
		c := query[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			space = len(out) > 0
			continue
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, c)
	}
	if i < len(query) {
		return string(out) + "..."
	}
	return string(out)
}
