package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
)

// Sortable task columns keyed by their API name.
var taskSortColumns = map[string]string{
	"createdAt": "tasks.created_at",
	"updatedAt": "tasks.updated_at",
	"dueDate":   "tasks.due_date",
	"priority":  "tasks.priority",
	"status":    "tasks.status",
	"title":     "tasks.title",
}

// IsTaskSortField reports whether field can be used as sortBy.
func IsTaskSortField(field string) bool {
	_, ok := taskSortColumns[field]
	return ok
}

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Creator", "Assignee").Create(task).Error
}

// FindByID finds a task by ID with creator and assignee loaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Preload("Creator").Preload("Assignee").First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{}).
		Scopes(taskScope(filter.Scope), database.Search(filter.Search, "tasks.title", "tasks.description"))

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.CreatedByID != nil {
		query = query.Where("tasks.created_by_id = ?", *filter.CreatedByID)
	}
	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := taskSortColumns[filter.SortBy]
	if !ok {
		column = taskSortColumns["createdAt"]
	}
	direction := " ASC"
	if filter.SortDesc {
		direction = " DESC"
	}

	var tasks []models.Task
	if err := query.Preload("Creator").Preload("Assignee").
		Order(column + direction).Order("tasks.id" + direction).
		Scopes(database.Paginate(filter.Pagination)).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Stats aggregates tasks visible within scope
func (r *GormTaskRepository) Stats(ctx context.Context, scope authz.Scope, now time.Time) (TaskStats, error) {
	var stats TaskStats
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Task{}).Scopes(taskScope(scope))
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalTasks, base()},
		{&stats.PendingTasks, base().Where("tasks.status = ?", models.TaskStatusPending)},
		{&stats.InProgressTasks, base().Where("tasks.status = ?", models.TaskStatusInProgress)},
		{&stats.CompletedTasks, base().Where("tasks.status = ?", models.TaskStatusCompleted)},
		{&stats.HighPriorityTasks, base().Where("tasks.priority = ?", models.TaskPriorityHigh)},
		{&stats.OverdueTasks, base().Where("tasks.due_date < ? AND tasks.status <> ?", now, models.TaskStatusCompleted)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return TaskStats{}, err
		}
	}
	return stats, nil
}

// Update saves task fields
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Model(&models.Task{ID: task.ID}).
		Select("title", "description", "due_date", "priority", "status", "assigned_to_id").
		Updates(map[string]interface{}{
			"title":          task.Title,
			"description":    task.Description,
			"due_date":       task.DueDate,
			"priority":       task.Priority,
			"status":         task.Status,
			"assigned_to_id": task.AssignedToID,
		}).Error
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}
