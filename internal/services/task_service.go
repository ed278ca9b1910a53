package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"github.com/yukikurage/team-task-api/internal/validation"
)

// TaskService handles task business logic
type TaskService struct {
	store repository.Store
	now   func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(store repository.Store) *TaskService {
	return &TaskService{
		store: store,
		now:   time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *uint64
	CreatedBy  *uint64
	Search     string
	SortBy     string
	SortOrder  string
	Pagination utils.PaginationParams
}

func (in ListTasksInput) validate() error {
	var v validation.Collector
	if in.Status != nil {
		v.Check(in.Status.Valid(), "status", "Status must be Pending, In Progress, or Completed")
	}
	if in.Priority != nil {
		v.Check(in.Priority.Valid(), "priority", "Priority must be Low, Medium, or High")
	}
	if in.SortBy != "" {
		v.Check(repository.IsTaskSortField(in.SortBy), "sortBy", "Unsupported sort field")
	}
	if in.SortOrder != "" {
		v.Check(in.SortOrder == "asc" || in.SortOrder == "desc", "sortOrder", "Sort order must be asc or desc")
	}
	return v.Err()
}

// ListTasks returns the tasks visible to p. Visibility is applied in the
// query, before pagination.
func (s *TaskService) ListTasks(ctx context.Context, p authz.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	if err := input.validate(); err != nil {
		return nil, 0, err
	}
	if input.SortBy == "" {
		input.SortBy = "createdAt"
	}

	tasks, total, err := s.store.Tasks().List(ctx, repository.TaskFilter{
		Scope:        authz.TaskVisibility(p),
		Status:       input.Status,
		Priority:     input.Priority,
		CreatedByID:  input.CreatedBy,
		AssignedToID: input.AssignedTo,
		Search:       strings.TrimSpace(input.Search),
		SortBy:       input.SortBy,
		SortDesc:     input.SortOrder != "asc",
		Pagination:   input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// MyTasks returns the tasks assigned to p, soonest due first by default.
func (s *TaskService) MyTasks(ctx context.Context, p authz.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	if input.SortBy == "" {
		input.SortBy = "dueDate"
		if input.SortOrder == "" {
			input.SortOrder = "asc"
		}
	}
	input.AssignedTo = &p.UserID
	input.CreatedBy = nil
	return s.ListTasks(ctx, p, input)
}

// Stats aggregates the tasks visible to p.
func (s *TaskService) Stats(ctx context.Context, p authz.Principal) (repository.TaskStats, error) {
	stats, err := s.store.Tasks().Stats(ctx, authz.TaskVisibility(p), s.now().UTC())
	if err != nil {
		return repository.TaskStats{}, fmt.Errorf("failed to compute task stats: %w", err)
	}
	return stats, nil
}

// GetTask returns a task p may view
func (s *TaskService) GetTask(ctx context.Context, p authz.Principal, taskID uint64) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ViewTask, authz.Target{Task: taskRef(task)}); err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     string
	Priority    models.TaskPriority
	Status      models.TaskStatus
	AssignedTo  *uint64
}

// CreateTask creates a task. The assignee defaults to the creator.
func (s *TaskService) CreateTask(ctx context.Context, p authz.Principal, input CreateTaskInput) (*models.Task, error) {
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}

	now := s.now()
	var v validation.Collector
	v.TaskTitle("title", input.Title)
	v.TaskDescription("description", input.Description)
	due, err := utils.ParseDate(input.DueDate)
	if err != nil {
		v.Add("dueDate", "Due date must be a valid ISO 8601 date")
	} else {
		v.FutureDate("dueDate", due, now)
	}
	v.Check(input.Priority.Valid(), "priority", "Priority must be Low, Medium, or High")
	v.Check(input.Status.Valid(), "status", "Status must be Pending, In Progress, or Completed")
	if err := v.Err(); err != nil {
		return nil, err
	}

	assigneeID := p.UserID
	if input.AssignedTo != nil {
		assigneeID = *input.AssignedTo
	}
	assignee, err := s.loadAssignee(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.CreateTask, authz.Target{Assignee: authz.UserRefOf(assignee)}); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		DueDate:      due,
		Priority:     input.Priority,
		Status:       input.Status,
		CreatedByID:  p.UserID,
		AssignedToID: assignee.ID,
	}
	if err := s.store.Tasks().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.loadTask(ctx, task.ID)
}

// TaskPatch is a partial task update. Only fields present in the request
// are set.
type TaskPatch struct {
	Title       optional.Value[string]              `json:"title"`
	Description optional.Value[string]              `json:"description"`
	DueDate     optional.Value[string]              `json:"dueDate"`
	Priority    optional.Value[models.TaskPriority] `json:"priority"`
	Status      optional.Value[models.TaskStatus]   `json:"status"`
	AssignedTo  optional.Value[uint64]              `json:"assignedTo"`
}

// Fields lists the names of the fields present in the patch.
func (p TaskPatch) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Title.Set, authz.FieldTitle)
	add(p.Description.Set, authz.FieldDescription)
	add(p.DueDate.Set, authz.FieldDueDate)
	add(p.Priority.Set, authz.FieldPriority)
	add(p.Status.Set, authz.FieldStatus)
	add(p.AssignedTo.Set, authz.FieldAssignedTo)
	return fields
}

func (p TaskPatch) validate() (time.Time, error) {
	var v validation.Collector
	var due time.Time
	if p.Title.Set {
		v.TaskTitle(authz.FieldTitle, p.Title.Value)
	}
	if p.Description.Set {
		v.TaskDescription(authz.FieldDescription, p.Description.Value)
	}
	if p.DueDate.Set {
		parsed, err := utils.ParseDate(p.DueDate.Value)
		v.Check(err == nil, authz.FieldDueDate, "Due date must be a valid ISO 8601 date")
		due = parsed
	}
	if p.Priority.Set {
		v.Check(p.Priority.Value.Valid(), authz.FieldPriority, "Priority must be Low, Medium, or High")
	}
	if p.Status.Set {
		v.Check(p.Status.Value.Valid(), authz.FieldStatus, "Status must be Pending, In Progress, or Completed")
	}
	if p.AssignedTo.Set {
		v.Check(!p.AssignedTo.Null && p.AssignedTo.Value != 0, authz.FieldAssignedTo, "Assigned user must be a valid user ID")
	}
	return due, v.Err()
}

// UpdateTask applies patch as a whole or not at all.
func (s *TaskService) UpdateTask(ctx context.Context, p authz.Principal, taskID uint64, patch TaskPatch) (*models.Task, error) {
	due, err := patch.validate()
	if err != nil {
		return nil, err
	}

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	target := authz.Target{Task: taskRef(task), Fields: patch.Fields()}
	if patch.AssignedTo.Set {
		assignee, err := s.loadAssignee(ctx, patch.AssignedTo.Value)
		if err != nil {
			return nil, err
		}
		target.Assignee = authz.UserRefOf(assignee)
	}
	if err := authz.Authorize(p, authz.UpdateTask, target); err != nil {
		return nil, err
	}

	if patch.Title.Set {
		task.Title = strings.TrimSpace(patch.Title.Value)
	}
	if patch.Description.Set {
		task.Description = strings.TrimSpace(patch.Description.Value)
	}
	if patch.DueDate.Set {
		task.DueDate = due
	}
	if patch.Priority.Set {
		task.Priority = patch.Priority.Value
	}
	if patch.Status.Set {
		task.Status = patch.Status.Value
	}
	if patch.AssignedTo.Set {
		task.AssignedToID = patch.AssignedTo.Value
	}

	if err := s.store.Tasks().Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return s.loadTask(ctx, task.ID)
}

// AssignTask reassigns a task. Users are never allowed to reassign.
func (s *TaskService) AssignTask(ctx context.Context, p authz.Principal, taskID, assigneeID uint64) (*models.Task, error) {
	if p.Role == models.RoleUser {
		return nil, authz.ErrUsersCannotReassign
	}
	if assigneeID == 0 {
		var v validation.Collector
		v.Add(authz.FieldAssignedTo, "Assigned user is required")
		return nil, v.Err()
	}

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.loadAssignee(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.AssignTask, authz.Target{
		Task:     taskRef(task),
		Assignee: authz.UserRefOf(assignee),
	}); err != nil {
		return nil, err
	}

	task.AssignedToID = assignee.ID
	if err := s.store.Tasks().Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	return s.loadTask(ctx, task.ID)
}

// DeleteTask deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, p authz.Principal, taskID uint64) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(p, authz.DeleteTask, authz.Target{Task: taskRef(task)}); err != nil {
		return err
	}
	if err := s.store.Tasks().Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return nil, storeError(err, ErrTaskNotFound, "find task")
	}
	return task, nil
}

// loadAssignee reads the candidate's current team at call time.
func (s *TaskService) loadAssignee(ctx context.Context, userID uint64) (*models.User, error) {
	teamID, err := s.store.Users().ResolveTeamOf(ctx, userID)
	if err != nil {
		return nil, storeError(err, ErrAssigneeNotFound, "find assignee")
	}
	return &models.User{ID: userID, TeamID: teamID}, nil
}

// taskRef uses the preloaded creator and assignee. A party that no longer
// exists has no team.
func taskRef(task *models.Task) *authz.TaskRef {
	return &authz.TaskRef{
		CreatedBy:  authz.UserRef{ID: task.CreatedByID, TeamID: task.Creator.TeamID},
		AssignedTo: authz.UserRef{ID: task.AssignedToID, TeamID: task.Assignee.TeamID},
	}
}
