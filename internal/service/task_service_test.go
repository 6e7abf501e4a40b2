package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "taskvault/internal/errors"
	"taskvault/internal/model"
	"taskvault/internal/repository"
)

// MockTaskRepository is a mock implementation of TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*model.Task, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindFiltered(ctx context.Context, ownerID uint, filter repository.TaskFilter, offset, limit int, sortBy, order string) ([]model.Task, int64, error) {
	args := m.Called(ctx, ownerID, filter, offset, limit, sortBy, order)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Task), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func newTestTaskService(repo *MockTaskRepository) *taskService {
	// A nil cache client behaves like a permanent miss, so these tests hit
	// the repository directly.
	svc := NewTaskService(repo, &spyAudit{}, nil)
	return svc.(*taskService)
}

func TestTaskService_Create(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

	svc := newTestTaskService(mockRepo)
	task, err := svc.Create(context.Background(), 7, TaskCreateInput{
		Title:       "Write report",
		Description: "quarterly numbers",
	})

	assert.NoError(t, err)
	assert.Equal(t, uint(7), task.UserID)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Equal(t, model.TaskPriorityMedium, task.Priority, "priority defaults to medium")
	assert.False(t, task.IsCompleted)
	assert.Nil(t, task.CompletedAt)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_Get_OwnershipScoped(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	// The repository query is scoped by owner, so a task belonging to
	// someone else comes back as record-not-found.
	mockRepo.On("FindByIDAndOwner", mock.Anything, uint(42), uint(7)).Return(nil, gorm.ErrRecordNotFound)

	svc := newTestTaskService(mockRepo)
	task, err := svc.Get(context.Background(), 42, 7)

	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
	assert.Nil(t, task)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_Update_PartialFields(t *testing.T) {
	due := time.Now().Add(48 * time.Hour)
	existing := &model.Task{
		ID:          42,
		Title:       "Original title",
		Description: "original description",
		Category:    "work",
		Status:      model.TaskStatusPending,
		Priority:    model.TaskPriorityLow,
		UserID:      7,
		DueDate:     &due,
	}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByIDAndOwner", mock.Anything, uint(42), uint(7)).Return(existing, nil)
	mockRepo.On("Update", mock.Anything, existing).Return(nil)

	svc := newTestTaskService(mockRepo)
	newTitle := "Updated title"
	task, err := svc.Update(context.Background(), 42, 7, TaskUpdateInput{Title: &newTitle})

	assert.NoError(t, err)
	assert.Equal(t, "Updated title", task.Title)
	// Fields absent from the input are untouched.
	assert.Equal(t, "original description", task.Description)
	assert.Equal(t, "work", task.Category)
	assert.Equal(t, model.TaskPriorityLow, task.Priority)
	assert.Equal(t, &due, task.DueDate)
	assert.False(t, task.IsCompleted)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_Update_CompletedStatusStampsTimestamp(t *testing.T) {
	existing := &model.Task{
		ID:     42,
		Title:  "Ship it",
		Status: model.TaskStatusInProgress,
		UserID: 7,
	}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByIDAndOwner", mock.Anything, uint(42), uint(7)).Return(existing, nil)
	mockRepo.On("Update", mock.Anything, existing).Return(nil)

	svc := newTestTaskService(mockRepo)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	completed := model.TaskStatusCompleted
	task, err := svc.Update(context.Background(), 42, 7, TaskUpdateInput{Status: &completed})

	assert.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	assert.True(t, task.IsCompleted)
	assert.Equal(t, fixed, *task.CompletedAt)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_Complete(t *testing.T) {
	t.Run("marks a pending task completed", func(t *testing.T) {
		existing := &model.Task{ID: 42, Title: "Ship it", Status: model.TaskStatusPending, UserID: 7}

		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, uint(42), uint(7)).Return(existing, nil)
		mockRepo.On("Update", mock.Anything, existing).Return(nil)

		svc := newTestTaskService(mockRepo)
		fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return fixed }

		task, err := svc.Complete(context.Background(), 42, 7)

		assert.NoError(t, err)
		assert.Equal(t, model.TaskStatusCompleted, task.Status)
		assert.True(t, task.IsCompleted)
		assert.Equal(t, fixed, *task.CompletedAt)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects an already completed task", func(t *testing.T) {
		completedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
		existing := &model.Task{
			ID:          42,
			Status:      model.TaskStatusCompleted,
			IsCompleted: true,
			CompletedAt: &completedAt,
			UserID:      7,
		}

		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, uint(42), uint(7)).Return(existing, nil)

		svc := newTestTaskService(mockRepo)
		task, err := svc.Complete(context.Background(), 42, 7)

		assert.ErrorIs(t, err, apperrors.ErrTaskAlreadyCompleted)
		assert.Nil(t, task)
		// Update is never called and the original timestamp survives.
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		assert.Equal(t, completedAt, *existing.CompletedAt)
	})
}

func TestTaskService_Delete(t *testing.T) {
	existing := &model.Task{ID: 42, Title: "Old task", UserID: 7}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByIDAndOwner", mock.Anything, uint(42), uint(7)).Return(existing, nil)
	mockRepo.On("Delete", mock.Anything, existing).Return(nil)

	svc := newTestTaskService(mockRepo)
	err := svc.Delete(context.Background(), 42, 7)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_List_Pagination(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		pageSize       int
		total          int64
		returned       int
		wantPage       int
		wantPageSize   int
		wantOffset     int
		wantTotalPages int
	}{
		{
			name:           "first page of three",
			page:           1,
			pageSize:       10,
			total:          25,
			returned:       10,
			wantPage:       1,
			wantPageSize:   10,
			wantOffset:     0,
			wantTotalPages: 3,
		},
		{
			name:           "last partial page",
			page:           3,
			pageSize:       10,
			total:          25,
			returned:       5,
			wantPage:       3,
			wantPageSize:   10,
			wantOffset:     20,
			wantTotalPages: 3,
		},
		{
			name:           "page below one is clamped",
			page:           0,
			pageSize:       10,
			total:          5,
			returned:       5,
			wantPage:       1,
			wantPageSize:   10,
			wantOffset:     0,
			wantTotalPages: 1,
		},
		{
			name:           "page size defaults when unset",
			page:           1,
			pageSize:       0,
			total:          5,
			returned:       5,
			wantPage:       1,
			wantPageSize:   10,
			wantOffset:     0,
			wantTotalPages: 1,
		},
		{
			name:           "page size is capped",
			page:           1,
			pageSize:       500,
			total:          5,
			returned:       5,
			wantPage:       1,
			wantPageSize:   100,
			wantOffset:     0,
			wantTotalPages: 1,
		},
		{
			name:           "empty result still reports one page",
			page:           1,
			pageSize:       10,
			total:          0,
			returned:       0,
			wantPage:       1,
			wantPageSize:   10,
			wantOffset:     0,
			wantTotalPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]model.Task, tt.returned)
			for i := range items {
				items[i] = model.Task{ID: uint(i + 1), UserID: 7}
			}

			mockRepo := new(MockTaskRepository)
			mockRepo.On("FindFiltered", mock.Anything, uint(7), repository.TaskFilter{}, tt.wantOffset, tt.wantPageSize, "", "").
				Return(items, tt.total, nil)

			svc := newTestTaskService(mockRepo)
			page, err := svc.List(context.Background(), 7, repository.TaskFilter{}, tt.page, tt.pageSize, "", "")

			assert.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantPageSize, page.PageSize)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.wantTotalPages, page.TotalPages)
			assert.Len(t, page.Items, tt.returned)
			assert.NotNil(t, page.Items)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_Stats(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("CountByOwner", mock.Anything, uint(7)).Return(int64(12), int64(4), nil)

	svc := newTestTaskService(mockRepo)
	stats, err := svc.Stats(context.Background(), 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(12), stats.Total)
	assert.Equal(t, int64(4), stats.Completed)
	assert.Equal(t, int64(8), stats.Pending)
	mockRepo.AssertExpectations(t)
}
