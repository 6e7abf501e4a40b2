package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskvault/internal/cache"
	apperrors "taskvault/internal/errors"
	"taskvault/internal/model"
	"taskvault/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	statsCacheTTL   = 5 * time.Minute
)

// TaskCreateInput carries the fields accepted on task creation.
type TaskCreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    model.TaskPriority
	DueDate     *time.Time
}

// TaskUpdateInput is a partial update: only non-nil fields are applied.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	DueDate     *time.Time
}

// TaskPage is one page of a filtered task listing.
type TaskPage struct {
	Items      []model.Task `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// TaskStats summarizes an owner's tasks.
type TaskStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

// TaskService enforces ownership on every task operation. A task owned by
// someone else is reported exactly like a task that does not exist.
type TaskService interface {
	Create(ctx context.Context, ownerID uint, in TaskCreateInput) (*model.Task, error)
	Get(ctx context.Context, id, ownerID uint) (*model.Task, error)
	List(ctx context.Context, ownerID uint, filter repository.TaskFilter, page, pageSize int, sortBy, order string) (*TaskPage, error)
	Update(ctx context.Context, id, ownerID uint, in TaskUpdateInput) (*model.Task, error)
	Complete(ctx context.Context, id, ownerID uint) (*model.Task, error)
	Delete(ctx context.Context, id, ownerID uint) error
	Stats(ctx context.Context, ownerID uint) (*TaskStats, error)
}

type taskService struct {
	repo  repository.TaskRepository
	audit AuditService
	cache *cache.Client
	now   func() time.Time
}

// NewTaskService creates a new task service.
func NewTaskService(repo repository.TaskRepository, audit AuditService, cache *cache.Client) TaskService {
	return &taskService{
		repo:  repo,
		audit: audit,
		cache: cache,
		now:   time.Now,
	}
}

func (s *taskService) statsCacheKey(ownerID uint) string {
	return fmt.Sprintf("taskstats:%d", ownerID)
}

func (s *taskService) Create(ctx context.Context, ownerID uint, in TaskCreateInput) (*model.Task, error) {
	priority := in.Priority
	if priority == 0 {
		priority = model.TaskPriorityMedium
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Status:      model.TaskStatusPending,
		Priority:    priority,
		IsCompleted: false,
		DueDate:     in.DueDate,
		UserID:      ownerID,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.audit.LogTaskEvent(ctx, model.AuditCreateTask, ownerID, task.ID, fmt.Sprintf("task created: %s", task.Title))
	_ = s.cache.Delete(ctx, s.statsCacheKey(ownerID))

	return task, nil
}

// Get resolves the task scoped to the owner in a single query. Cross-owner
// access and a missing id are indistinguishable to the caller.
func (s *taskService) Get(ctx context.Context, id, ownerID uint) (*model.Task, error) {
	task, err := s.repo.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ownerID uint, filter repository.TaskFilter, page, pageSize int, sortBy, order string) (*TaskPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offset := (page - 1) * pageSize
	tasks, total, err := s.repo.FindFiltered(ctx, ownerID, filter, offset, pageSize, sortBy, order)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	if tasks == nil {
		tasks = []model.Task{}
	}

	return &TaskPage{
		Items:      tasks,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update applies only the fields present in the input. Setting the status
// to completed also marks the task completed and stamps completed_at, even
// when the caller did not set those explicitly.
func (s *taskService) Update(ctx context.Context, id, ownerID uint, in TaskUpdateInput) (*model.Task, error) {
	task, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Category != nil {
		task.Category = *in.Category
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Status != nil {
		task.Status = *in.Status
		if *in.Status == model.TaskStatusCompleted {
			now := s.now()
			task.IsCompleted = true
			task.CompletedAt = &now
		}
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.audit.LogTaskEvent(ctx, model.AuditUpdateTask, ownerID, task.ID, fmt.Sprintf("task updated: %s", task.Title))
	_ = s.cache.Delete(ctx, s.statsCacheKey(ownerID))

	return task, nil
}

func (s *taskService) Complete(ctx context.Context, id, ownerID uint) (*model.Task, error) {
	task, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if task.IsCompleted {
		return nil, apperrors.ErrTaskAlreadyCompleted
	}

	now := s.now()
	task.Status = model.TaskStatusCompleted
	task.IsCompleted = true
	task.CompletedAt = &now

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	s.audit.LogTaskEvent(ctx, model.AuditCompleteTask, ownerID, task.ID, fmt.Sprintf("task completed: %s", task.Title))
	_ = s.cache.Delete(ctx, s.statsCacheKey(ownerID))

	return task, nil
}

// Delete removes the task permanently. The title is captured beforehand so
// the audit entry can still name it.
func (s *taskService) Delete(ctx context.Context, id, ownerID uint) error {
	task, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}

	title := task.Title
	if err := s.repo.Delete(ctx, task); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.audit.LogTaskEvent(ctx, model.AuditDeleteTask, ownerID, id, fmt.Sprintf("task deleted: %s", title))
	_ = s.cache.Delete(ctx, s.statsCacheKey(ownerID))

	return nil
}

// Stats returns the owner's task counts, cached briefly since the numbers
// change only on task mutations which also invalidate the entry.
func (s *taskService) Stats(ctx context.Context, ownerID uint) (*TaskStats, error) {
	if data, _ := s.cache.Get(ctx, s.statsCacheKey(ownerID)); data != nil {
		var cached TaskStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	total, completed, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	stats := &TaskStats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, s.statsCacheKey(ownerID), payload, statsCacheTTL)
	}

	return stats, nil
}
