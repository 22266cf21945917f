package repo

import (
	"context"
	"time"

	"github.com/boardlock/boardlock/internal/model"
)

// TaskRepository is the persistence boundary for board tasks. Every
// operation is scoped to a board id.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, board, id string) (model.Task, error)
	List(ctx context.Context, board string) ([]model.Task, error)
	Update(ctx context.Context, board, id string, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, board, id string) error
	SaveIdempotencyKey(ctx context.Context, key, taskID string) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error)
	GetStats(ctx context.Context, board string) (Stats, error)
}

// Stats summarizes a board: how many tasks sit in each column.
type Stats struct {
	ByStatus   map[model.Status]int `json:"by_status"`
	TotalTasks int                  `json:"total_tasks"`
}
