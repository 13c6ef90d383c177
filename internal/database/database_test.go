package database

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paiban/roster/internal/metrics"
)

func TestObserve(t *testing.T) {
	reg := metrics.NewRegistry()
	db := newDB(nil, 50*time.Millisecond, WithMetrics(reg))

	db.observe("exec", "INSERT INTO rosters", time.Millisecond, nil)
	db.observe("exec", "INSERT INTO rosters", time.Second, nil)
	db.observe("tx_exec", "INSERT INTO roster_grid_chunks", time.Millisecond, errors.New("连接断开"))

	c := reg.Counter(metrics.DBQueriesTotal)
	assert.Equal(t, 1.0, c.Value("exec", "ok"))
	assert.Equal(t, 1.0, c.Value("exec", "slow"))
	assert.Equal(t, 1.0, c.Value("tx_exec", "error"))
}

func TestNewDB_DefaultSlowThreshold(t *testing.T) {
	db := newDB(nil, 0)
	assert.Equal(t, 100*time.Millisecond, db.slow)
	assert.Nil(t, db.reg)

	// 未配置指标时不应崩溃
	db.observe("query", "SELECT 1", time.Second, nil)
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "SELECT seq, data FROM roster_grid_chunks WHERE roster_id = $1",
		truncateQuery("\n\t\tSELECT seq, data\n\t\tFROM roster_grid_chunks\n\t\tWHERE roster_id = $1\n\t"))

	long := "SELECT " + strings.Repeat("x", 300)
	got := truncateQuery(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, 203)

	exact := strings.Repeat("y", 200)
	assert.Equal(t, exact, truncateQuery(exact))
}
