package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/dutyplan/pkg/engine"
	apperrors "github.com/paiban/dutyplan/pkg/errors"
	"github.com/paiban/dutyplan/pkg/model"
)

// Run 求解运行记录
type Run struct {
	ID            uuid.UUID     `json:"id"`
	Kind          string        `json:"kind"`
	Month         string        `json:"month,omitempty"`
	Status        string        `json:"status"`
	SolverStatus  string        `json:"solver_status,omitempty"`
	TotalAssigned int           `json:"total_assigned"`
	TotalRequired int           `json:"total_required"`
	DurationMs    int64         `json:"duration_ms"`
	Request       model.JSONMap `json:"request,omitempty"`
	Result        model.JSONMap `json:"result,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RunRepositoryInterface 运行记录仓储接口
type RunRepositoryInterface interface {
	engine.RunRecorder
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, filter ListFilter) ([]*Run, int, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// RunRepository 运行记录仓储实现
type RunRepository struct {
	db DB
}

// NewRunRepository 创建运行记录仓储
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, kind, month, status, solver_status, total_assigned, total_required,
	duration_ms, request, result, created_at`

// RecordRun 实现 engine.RunRecorder
func (r *RunRepository) RecordRun(ctx context.Context, rec *engine.RunRecord) error {
	run, reqJSON, resJSON, err := runFromRecord(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO solve_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Kind, run.Month, run.Status, run.SolverStatus, run.TotalAssigned, run.TotalRequired,
		run.DurationMs, reqJSON, resJSON, run.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存运行记录失败")
	}
	return nil
}

// GetByID 根据ID获取运行记录
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM solve_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("运行记录", id.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询运行记录失败")
	}
	return run, nil
}

// List 列出运行记录，列表不返回请求与结果正文
func (r *RunRepository) List(ctx context.Context, filter ListFilter) ([]*Run, int, error) {
	where, args := buildRunFilter(filter)

	countQuery := "SELECT COUNT(*) FROM solve_runs " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计运行记录失败")
	}

	query := fmt.Sprintf(`
		SELECT id, kind, month, status, solver_status, total_assigned, total_required, duration_ms, created_at
		FROM solve_runs %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, orderColumn(filter.OrderBy), orderDir(filter.OrderDir), len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询运行记录失败")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.Month, &run.Status, &run.SolverStatus,
			&run.TotalAssigned, &run.TotalRequired, &run.DurationMs, &run.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("扫描运行记录失败: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("遍历运行记录失败: %w", err)
	}
	return runs, total, nil
}

// DeleteBefore 删除早于指定时间的记录
func (r *RunRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM solve_runs WHERE created_at < $1", before)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "清理运行记录失败")
	}
	return res.RowsAffected()
}

// runFromRecord 把引擎记录转换为表行
func runFromRecord(rec *engine.RunRecord) (*Run, []byte, []byte, error) {
	run := &Run{
		ID:         rec.ID,
		Kind:       rec.Kind,
		Month:      rec.Month,
		Status:     string(rec.Status),
		DurationMs: rec.Duration.Milliseconds(),
		CreatedAt:  rec.CreatedAt,
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if res, ok := rec.Result.(*model.Result); ok && res != nil {
		run.TotalAssigned = res.TotalAssigned
		run.TotalRequired = res.TotalRequired
		if res.Statistics != nil {
			run.SolverStatus = res.Statistics.SolverStatus
		}
	}

	reqJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("序列化请求失败: %w", err)
	}
	resJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("序列化结果失败: %w", err)
	}
	return run, reqJSON, resJSON, nil
}

// buildRunFilter 构造 WHERE 子句，Extra["kind"] 过滤运行类型，StartDate/EndDate 按月份过滤
func buildRunFilter(filter ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, v interface{}) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if kind, ok := filter.Extra["kind"].(string); ok && kind != "" {
		add("kind = $%d", kind)
	}
	if filter.StartDate != "" {
		add("month >= $%d", filter.StartDate)
	}
	if filter.EndDate != "" {
		add("month <= $%d", filter.EndDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// orderColumn 排序列白名单
func orderColumn(col string) string {
	switch col {
	case "month", "status", "duration_ms", "created_at":
		return col
	default:
		return "created_at"
	}
}

func orderDir(dir string) string {
	if strings.EqualFold(dir, "asc") {
		return "ASC"
	}
	return "DESC"
}

// scanRun 扫描单行记录
func scanRun(row Scanner) (*Run, error) {
	run := &Run{}
	err := row.Scan(
		&run.ID, &run.Kind, &run.Month, &run.Status, &run.SolverStatus,
		&run.TotalAssigned, &run.TotalRequired, &run.DurationMs,
		&run.Request, &run.Result, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
