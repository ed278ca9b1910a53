package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// listInput reads the filter, sort and pagination query parameters.
func listInput(c *gin.Context) (services.ListTasksInput, bool) {
	input := services.ListTasksInput{
		Search:     c.Query("search"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		Pagination: utils.GetPaginationParams(c),
	}
	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		input.Status = &status
	}
	if p := c.Query("priority"); p != "" {
		priority := models.TaskPriority(p)
		input.Priority = &priority
	}

	var ok bool
	if input.AssignedTo, ok = queryID(c, "assignedTo"); !ok {
		return input, false
	}
	if input.CreatedBy, ok = queryID(c, "createdBy"); !ok {
		return input, false
	}
	return input, true
}

// ListTasks returns the tasks visible to the caller
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	input, ok := listInput(c)
	if !ok {
		return
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondPage(c, dto.ToTaskDTOs(tasks), input.Pagination, total)
}

// MyTasks returns the tasks assigned to the caller
func (h *TaskHandler) MyTasks(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	input, ok := listInput(c)
	if !ok {
		return
	}

	tasks, total, err := h.taskService.MyTasks(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondPage(c, dto.ToTaskDTOs(tasks), input.Pagination, total)
}

// Stats returns task counts within the caller's visibility
func (h *TaskHandler) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	stats, err := h.taskService.Stats(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, stats)
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), p, middleware.ParamID(c, "id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		DueDate     string              `json:"dueDate" binding:"required"`
		Priority    models.TaskPriority `json:"priority"`
		Status      models.TaskStatus   `json:"status"`
		AssignedTo  *uint64             `json:"assignedTo"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), p, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. Only the keys present in the body are
// changed, and the request is rejected as a whole when any of them is not
// allowed for the caller.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var patch services.TaskPatch
	if !bindStrictJSON(c, &patch) {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), p, middleware.ParamID(c, "id"), patch)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignTask reassigns a task to another user
func (h *TaskHandler) AssignTask(c *gin.Context) {
	type AssignTaskRequest struct {
		AssignedTo uint64 `json:"assignedTo"`
	}

	p, ok := principal(c)
	if !ok {
		return
	}
	var req AssignTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.AssignTask(c.Request.Context(), p, middleware.ParamID(c, "id"), req.AssignedTo)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respond(c, http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), p, middleware.ParamID(c, "id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Task deleted successfully"))
}
