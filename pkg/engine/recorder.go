package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/dutyplan/pkg/model"
)

// 运行类型
const (
	KindMonthly   = "monthly"
	KindAggregate = "aggregate"
)

// RunRecord 一次求解的记录
type RunRecord struct {
	ID        uuid.UUID     `json:"id"`
	Kind      string        `json:"kind"`
	Month     string        `json:"month,omitempty"`
	Status    model.Status  `json:"status"`
	Request   interface{}   `json:"request"`
	Result    interface{}   `json:"result"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// RunRecorder 运行记录持久化接口
type RunRecorder interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
}

// Observer 求解指标观察者
type Observer interface {
	ObserveSolve(kind, status string, duration time.Duration, stats *model.SolveStatistics)
}
