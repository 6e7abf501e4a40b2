package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"taskvault/internal/model"
)

// TaskFilter holds the optional, AND-combined criteria for listing tasks.
// Nil fields are not applied.
type TaskFilter struct {
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	Category    *string
	IsCompleted *bool
	Search      string
}

// Sortable column whitelist. Unknown sort fields silently fall back to
// created_at rather than erroring or reaching the query raw.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"title":      "title",
	"status":     "status",
}

// TaskRepository defines task persistence operations. Every single-task
// lookup is scoped by owner so a foreign task is indistinguishable from a
// missing one.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, task *model.Task) error
	FindFiltered(ctx context.Context, ownerID uint, filter TaskFilter, offset, limit int, sortBy, order string) ([]model.Task, int64, error)
	CountByOwner(ctx context.Context, ownerID uint) (total, completed int64, err error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository builds a GORM-backed task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Delete(task).Error
}

// FindFiltered returns one page of the owner's tasks matching the filter,
// plus the total match count before pagination.
func (r *taskRepository) FindFiltered(ctx context.Context, ownerID uint, filter TaskFilter, offset, limit int, sortBy, order string) ([]model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", ownerID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.IsCompleted != nil {
		query = query.Where("is_completed = ?", *filter.IsCompleted)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}

	var tasks []model.Task
	if err := query.
		Order(column + " " + direction).
		Offset(offset).
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CountByOwner returns the total and completed task counts for an owner.
func (r *taskRepository) CountByOwner(ctx context.Context, ownerID uint) (total, completed int64, err error) {
	base := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", ownerID)
	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).Where("is_completed = ?", true).Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}
