package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/roster/internal/database"
	"github.com/paiban/roster/pkg/model"
)

// 缺省分块大小
const DefaultChunkBytes = 256 << 10

// 排班表状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Roster 已生成的排班表
type Roster struct {
	ID        uuid.UUID      `json:"id"`
	RunID     uuid.UUID      `json:"run_id"`
	Unit      string         `json:"unit"`
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Strategy  string         `json:"strategy"`
	Status    string         `json:"status"` // draft/published
	GapCount  int            `json:"gap_count"`
	Percent   float64        `json:"percent"`
	Chunks    int            `json:"chunks"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RosterRepository 排班表仓储
// 排班数据以 JSON 存储，超过 chunkBytes 时拆分到多行 roster_grid_chunks
type RosterRepository struct {
	db         DB
	chunkBytes int
}

// NewRosterRepository 创建排班表仓储
func NewRosterRepository(db DB, chunkBytes int) *RosterRepository {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	return &RosterRepository{db: db, chunkBytes: chunkBytes}
}

// Save 保存排班表及其分块数据
func (r *RosterRepository) Save(ctx context.Context, roster *Roster, grid model.Grid) error {
	data, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("序列化排班数据失败: %w", err)
	}
	chunks := splitChunks(data, r.chunkBytes)

	if roster.ID == uuid.Nil {
		roster.ID = uuid.New()
	}
	if roster.Status == "" {
		roster.Status = StatusDraft
	}
	now := time.Now()
	roster.CreatedAt = now
	roster.UpdatedAt = now
	roster.Chunks = len(chunks)
	metadataJSON, _ := json.Marshal(roster.Metadata)

	return r.db.Transaction(ctx, func(q database.Querier) error {
		query := `
			INSERT INTO rosters (
				id, run_id, unit, year, month, strategy, status,
				gap_count, percent, chunks, metadata, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		if _, err := q.ExecContext(ctx, query,
			roster.ID, roster.RunID, roster.Unit, roster.Year, roster.Month, roster.Strategy, roster.Status,
			roster.GapCount, roster.Percent, roster.Chunks, metadataJSON, roster.CreatedAt, roster.UpdatedAt,
		); err != nil {
			return fmt.Errorf("创建排班记录失败: %w", err)
		}

		for seq, chunk := range chunks {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO roster_grid_chunks (roster_id, seq, data) VALUES ($1, $2, $3)",
				roster.ID, seq, chunk,
			); err != nil {
				return fmt.Errorf("写入排班分块 %d 失败: %w", seq, err)
			}
		}
		return nil
	})
}

// GetByID 根据ID获取排班记录
func (r *RosterRepository) GetByID(ctx context.Context, id uuid.UUID) (*Roster, error) {
	query := `
		SELECT id, run_id, unit, year, month, strategy, status,
			gap_count, percent, chunks, metadata, created_at, updated_at
		FROM rosters
		WHERE id = $1
	`
	return scanRoster(r.db.QueryRowContext(ctx, query, id))
}

// LoadGrid 读取并拼接排班分块
func (r *RosterRepository) LoadGrid(ctx context.Context, id uuid.UUID) (model.Grid, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT seq, data FROM roster_grid_chunks WHERE roster_id = $1 ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("查询排班分块失败: %w", err)
	}
	defer rows.Close()

	var chunks [][]byte
	for rows.Next() {
		var seq int
		var data []byte
		if err := rows.Scan(&seq, &data); err != nil {
			return nil, fmt.Errorf("扫描排班分块失败: %w", err)
		}
		if seq != len(chunks) {
			return nil, fmt.Errorf("排班分块不连续: 期望 %d 实际 %d", len(chunks), seq)
		}
		chunks = append(chunks, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取排班分块失败: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNotFound
	}

	var grid model.Grid
	if err := json.Unmarshal(joinChunks(chunks), &grid); err != nil {
		return nil, fmt.Errorf("解析排班数据失败: %w", err)
	}
	return grid, nil
}

// UpdateStatus 更新排班状态
func (r *RosterRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE rosters SET status = $2, updated_at = $3 WHERE id = $1", id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新排班状态失败: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除排班记录及分块
func (r *RosterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.Transaction(ctx, func(q database.Querier) error {
		if _, err := q.ExecContext(ctx, "DELETE FROM roster_grid_chunks WHERE roster_id = $1", id); err != nil {
			return fmt.Errorf("删除排班分块失败: %w", err)
		}
		res, err := q.ExecContext(ctx, "DELETE FROM rosters WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("删除排班记录失败: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List 列出排班记录
func (r *RosterRepository) List(ctx context.Context, filter ListFilter) ([]*Roster, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Unit != "" {
		conditions = append(conditions, fmt.Sprintf("unit = $%d", argNum))
		args = append(args, filter.Unit)
		argNum++
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", argNum))
		args = append(args, filter.Year)
		argNum++
	}
	if filter.Month > 0 {
		conditions = append(conditions, fmt.Sprintf("month = $%d", argNum))
		args = append(args, filter.Month)
		argNum++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rosters %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计排班数量失败: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, run_id, unit, year, month, strategy, status,
			gap_count, percent, chunks, metadata, created_at, updated_at
		FROM rosters %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询排班列表失败: %w", err)
	}
	defer rows.Close()

	var rosters []*Roster
	for rows.Next() {
		ro, err := scanRoster(rows)
		if err != nil {
			return nil, 0, err
		}
		rosters = append(rosters, ro)
	}
	return rosters, total, rows.Err()
}

// Latest 获取某病区某月最新的排班记录
func (r *RosterRepository) Latest(ctx context.Context, unit string, year, month int) (*Roster, error) {
	query := `
		SELECT id, run_id, unit, year, month, strategy, status,
			gap_count, percent, chunks, metadata, created_at, updated_at
		FROM rosters
		WHERE unit = $1 AND year = $2 AND month = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanRoster(r.db.QueryRowContext(ctx, query, unit, year, month))
}

func scanRoster(row Scanner) (*Roster, error) {
	ro := &Roster{}
	var metadataJSON []byte
	err := row.Scan(
		&ro.ID, &ro.RunID, &ro.Unit, &ro.Year, &ro.Month, &ro.Strategy, &ro.Status,
		&ro.GapCount, &ro.Percent, &ro.Chunks, &metadataJSON, &ro.CreatedAt, &ro.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班记录失败: %w", err)
	}
	if len(metadataJSON) > 0 {
		_ = json.Unmarshal(metadataJSON, &ro.Metadata)
	}
	return ro, nil
}

// splitChunks 按大小切分数据，空数据也产生一个分块
func splitChunks(data []byte, size int) [][]byte {
	if len(data) <= size {
		return [][]byte{data}
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		chunks = append(chunks, data[start:end])
	}
	return chunks
}

// joinChunks 拼接分块
func joinChunks(chunks [][]byte) []byte {
	return bytes.Join(chunks, nil)
}
