package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boardlock/boardlock/internal/model"
	"github.com/boardlock/boardlock/internal/policy"
	"github.com/boardlock/boardlock/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
)

// TaskService is the authority in front of the store. Capability checks
// live here: the client-side policy is a UX convenience, this one is the
// security boundary.
type TaskService struct {
	repo  repo.TaskRepository
	board string
}

func NewTaskService(r repo.TaskRepository, board string) *TaskService {
	return &TaskService{repo: r, board: board}
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx, s.board)
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	return s.repo.Get(ctx, s.board, id)
}

// Create inserts a new Backlog task. The idempotency key, when present,
// makes retried creates return the task of the first attempt.
func (s *TaskService) Create(ctx context.Context, role model.Role, title, description, idempKey string) (model.Task, error) {
	if !policy.For(role).Create {
		return model.Task{}, ErrForbidden
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrValidation
	}

	if idempKey != "" {
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil {
			return s.repo.Get(ctx, s.board, existingID)
		}
	}

	task, err := s.repo.Create(ctx, model.Task{
		Board:       s.board,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return task, err
	}

	if idempKey != "" {
		s.repo.SaveIdempotencyKey(ctx, idempKey, task.ID)

		// The key insert is first-writer-wins. If a concurrent create with
		// the same key won, discard our task and return the winner's.
		if winnerID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil && winnerID != task.ID {
			s.repo.Delete(ctx, s.board, task.ID)
			return s.repo.Get(ctx, s.board, winnerID)
		}
	}

	return task, nil
}

// Update applies a partial edit. Moving between columns needs the Move
// capability, touching title or description needs EditDelete; a patch
// doing both needs both.
func (s *TaskService) Update(ctx context.Context, role model.Role, id string, patch model.TaskPatch) (model.Task, error) {
	if patch.Empty() {
		return model.Task{}, ErrValidation
	}

	caps := policy.For(role)
	if patch.StatusChange() && !caps.Move {
		return model.Task{}, ErrForbidden
	}
	if patch.ContentChange() && !caps.EditDelete {
		return model.Task{}, ErrForbidden
	}

	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return model.Task{}, ErrValidation
		}
		patch.Title = &trimmed
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return model.Task{}, ErrValidation
	}

	return s.repo.Update(ctx, s.board, id, patch)
}

func (s *TaskService) Delete(ctx context.Context, role model.Role, id string) error {
	if !policy.For(role).EditDelete {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, s.board, id)
}

func (s *TaskService) GetStats(ctx context.Context) (repo.Stats, error) {
	return s.repo.GetStats(ctx, s.board)
}
