package repo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/boardlock/boardlock/internal/model"
)

// InMemTaskRepo is a map-backed TaskRepository for tests and local
// development. Ids are ObjectID hex strings like the mongo repo's.
type InMemTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]model.Task
	order []string
	keys  map[string]idempDoc
}

func NewInMemTaskRepo() *InMemTaskRepo {
	return &InMemTaskRepo{
		tasks: make(map[string]model.Task),
		keys:  make(map[string]idempDoc),
	}
}

func (r *InMemTaskRepo) Create(_ context.Context, t model.Task) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = primitive.NewObjectID().Hex()
	t.Status = model.StatusBacklog
	t.Revision = 1
	t.CreatedAt = time.Now().UTC()

	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	return t, nil
}

func (r *InMemTaskRepo) Get(_ context.Context, board, id string) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Board != board {
		return model.Task{}, ErrorNotFound
	}
	return t, nil
}

func (r *InMemTaskRepo) List(_ context.Context, board string) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		if t, ok := r.tasks[id]; ok && t.Board == board {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (r *InMemTaskRepo) Update(_ context.Context, board, id string, patch model.TaskPatch) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Board != board {
		return model.Task{}, ErrorNotFound
	}
	if patch.Revision != nil && *patch.Revision != t.Revision {
		return model.Task{}, ErrorConflict
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	t.Revision++

	r.tasks[id] = t
	return t, nil
}

func (r *InMemTaskRepo) Delete(_ context.Context, board, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Board != board {
		return ErrorNotFound
	}
	delete(r.tasks, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *InMemTaskRepo) SaveIdempotencyKey(_ context.Context, key, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keys[key]; exists {
		return nil
	}
	r.keys[key] = idempDoc{Key: key, TaskID: taskID, CreatedAt: time.Now().UTC()}
	return nil
}

func (r *InMemTaskRepo) GetIdempotencyKey(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.keys[key]
	if !ok {
		return "", ErrorNotFound
	}
	return doc.TaskID, nil
}

func (r *InMemTaskRepo) PurgeIdempotencyKeys(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for key, doc := range r.keys {
		if doc.CreatedAt.Before(olderThan) {
			delete(r.keys, key)
			purged++
		}
	}
	return purged, nil
}

func (r *InMemTaskRepo) GetStats(_ context.Context, board string) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{ByStatus: make(map[model.Status]int)}
	for _, t := range r.tasks {
		if t.Board != board {
			continue
		}
		stats.ByStatus[t.Status]++
		stats.TotalTasks++
	}
	return stats, nil
}
