package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boardlock/boardlock/internal/model"
	"github.com/boardlock/boardlock/internal/repo"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, board, id string) (model.Task, error) {
	args := m.Called(ctx, board, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, board string) ([]model.Task, error) {
	args := m.Called(ctx, board)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, board, id string, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, board, id, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, board, id string) error {
	args := m.Called(ctx, board, id)
	return args.Error(0)
}

func (m *MockTaskRepository) SaveIdempotencyKey(ctx context.Context, key, taskID string) error {
	args := m.Called(ctx, key, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockTaskRepository) PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) GetStats(ctx context.Context, board string) (repo.Stats, error) {
	args := m.Called(ctx, board)
	return args.Get(0).(repo.Stats), args.Error(1)
}

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name      string
		role      model.Role
		title     string
		idempKey  string
		setupMock func(*MockTaskRepository)
		wantErr   error
	}{
		{
			name:  "scrum master creates a task",
			role:  model.RoleScrumMaster,
			title: "Fix bug",
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Title == "Fix bug" && t.Board == "main"
				})).Return(model.Task{
					ID:     "6650f2a1b3c4d5e6f7a8b9c0",
					Board:  "main",
					Title:  "Fix bug",
					Status: model.StatusBacklog,
				}, nil)
			},
			wantErr: nil,
		},
		{
			name:  "title is trimmed before storing",
			role:  model.RoleScrumMaster,
			title: "  Fix bug  ",
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Title == "Fix bug"
				})).Return(model.Task{ID: "6650f2a1b3c4d5e6f7a8b9c0", Title: "Fix bug"}, nil)
			},
			wantErr: nil,
		},
		{
			name:      "validation error - whitespace only title",
			role:      model.RoleScrumMaster,
			title:     "   ",
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "product owner may not create",
			role:      model.RoleProductOwner,
			title:     "Fix bug",
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrForbidden,
		},
		{
			name:      "developer may not create",
			role:      model.RoleDeveloper,
			title:     "Fix bug",
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrForbidden,
		},
		{
			name:     "idempotency - key exists",
			role:     model.RoleScrumMaster,
			title:    "Fix bug",
			idempKey: "key-123",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetIdempotencyKey", mock.Anything, "key-123").Return("6650f2a1b3c4d5e6f7a8b9c0", nil)
				m.On("Get", mock.Anything, "main", "6650f2a1b3c4d5e6f7a8b9c0").Return(model.Task{
					ID:    "6650f2a1b3c4d5e6f7a8b9c0",
					Title: "Fix bug",
				}, nil)
			},
			wantErr: nil,
		},
		{
			name:     "idempotency - new key",
			role:     model.RoleScrumMaster,
			title:    "Fix bug",
			idempKey: "key-456",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetIdempotencyKey", mock.Anything, "key-456").Return("", repo.ErrorNotFound)
				m.On("Create", mock.Anything, mock.Anything).Return(model.Task{
					ID:    "6650f2a1b3c4d5e6f7a8b9c1",
					Title: "Fix bug",
				}, nil)
				m.On("SaveIdempotencyKey", mock.Anything, "key-456", "6650f2a1b3c4d5e6f7a8b9c1").Return(nil)
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo, "main")
			result, err := service.Create(context.Background(), tt.role, tt.title, "", tt.idempKey)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, result.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_Update(t *testing.T) {
	title := "Updated"
	blank := "   "
	status := model.StatusDone
	badStatus := model.Status("Archived")

	tests := []struct {
		name      string
		role      model.Role
		patch     model.TaskPatch
		setupMock func(*MockTaskRepository)
		wantErr   error
	}{
		{
			name:  "scrum master edits content",
			role:  model.RoleScrumMaster,
			patch: model.TaskPatch{Title: &title},
			setupMock: func(m *MockTaskRepository) {
				m.On("Update", mock.Anything, "main", "id-1", mock.MatchedBy(func(p model.TaskPatch) bool {
					return p.Title != nil && *p.Title == "Updated"
				})).Return(model.Task{ID: "id-1", Title: "Updated", Revision: 2}, nil)
			},
		},
		{
			name:  "product owner moves a task",
			role:  model.RoleProductOwner,
			patch: model.TaskPatch{Status: &status},
			setupMock: func(m *MockTaskRepository) {
				m.On("Update", mock.Anything, "main", "id-1", mock.Anything).
					Return(model.Task{ID: "id-1", Status: model.StatusDone, Revision: 2}, nil)
			},
		},
		{
			name:      "product owner may not edit content",
			role:      model.RoleProductOwner,
			patch:     model.TaskPatch{Title: &title},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrForbidden,
		},
		{
			name:      "developer may not move",
			role:      model.RoleDeveloper,
			patch:     model.TaskPatch{Status: &status},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrForbidden,
		},
		{
			name:      "whitespace title rejected",
			role:      model.RoleScrumMaster,
			patch:     model.TaskPatch{Title: &blank},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "unknown status rejected",
			role:      model.RoleScrumMaster,
			patch:     model.TaskPatch{Status: &badStatus},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "empty patch rejected",
			role:      model.RoleScrumMaster,
			patch:     model.TaskPatch{},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo, "main")
			_, err := service.Update(context.Background(), tt.role, "id-1", tt.patch)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_Update_TrimsTitle(t *testing.T) {
	padded := "  Fix bug  "

	mockRepo := new(MockTaskRepository)
	mockRepo.On("Update", mock.Anything, "main", "id-1", mock.MatchedBy(func(p model.TaskPatch) bool {
		return p.Title != nil && *p.Title == "Fix bug"
	})).Return(model.Task{ID: "id-1", Title: "Fix bug"}, nil)

	service := NewTaskService(mockRepo, "main")
	result, err := service.Update(context.Background(), model.RoleScrumMaster, "id-1", model.TaskPatch{Title: &padded})

	require.NoError(t, err)
	assert.Equal(t, "Fix bug", result.Title)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		role      model.Role
		setupMock func(*MockTaskRepository)
		wantErr   error
	}{
		{
			name: "scrum master deletes",
			role: model.RoleScrumMaster,
			setupMock: func(m *MockTaskRepository) {
				m.On("Delete", mock.Anything, "main", "id-1").Return(nil)
			},
		},
		{
			name:      "product owner may not delete",
			role:      model.RoleProductOwner,
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrForbidden,
		},
		{
			name: "absent id propagates not found",
			role: model.RoleScrumMaster,
			setupMock: func(m *MockTaskRepository) {
				m.On("Delete", mock.Anything, "main", "id-1").Return(repo.ErrorNotFound)
			},
			wantErr: repo.ErrorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo, "main")
			err := service.Delete(context.Background(), tt.role, "id-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_GetStats(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	expectedStats := repo.Stats{
		ByStatus: map[model.Status]int{
			model.StatusBacklog:    5,
			model.StatusInProgress: 2,
			model.StatusDone:       10,
		},
		TotalTasks: 17,
	}

	mockRepo.On("GetStats", mock.Anything, "main").Return(expectedStats, nil)

	service := NewTaskService(mockRepo, "main")
	stats, err := service.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, expectedStats, stats)
	mockRepo.AssertExpectations(t)
}
